package vector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/draco28/pulsedb/pkg/ids"
	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// sidecarFile is the on-disk JSON shape for a collective's .hnsw.meta
// file: dimension, the next internal id that would have been assigned,
// the full id_map as [experience-id text, internal id] pairs with the
// internal id written as a decimal string (not a JSON number), and the
// soft-deleted set by experience-id text, so it is still meaningful
// after a rebuild reassigns every internal id. Rebuild-from-storage
// only ever consumes Deleted — id_map
// and next_id exist for on-disk fidelity and forward compatibility
// with a loader that restores internal ids directly, which this
// implementation does not do (see the package doc).
type sidecarFile struct {
	Dimension int        `json:"dimension"`
	NextID    uint64      `json:"next_id"`
	IDMap     [][2]string `json:"id_map"`
	Deleted   []string    `json:"deleted"`
}

// MetaPath returns the sidecar path for a collective's vector index,
// conventionally <dataDir>/<collectiveID>.hnsw.meta.
func MetaPath(dataDir string, collectiveID ids.CollectiveID) string {
	return filepath.Join(dataDir, collectiveID.String()+".hnsw.meta")
}

// dumpPath returns the opaque graph-dump path Save writes and never
// reads back, conventionally <dataDir>/<collectiveID>.hnswdump.bin.
func dumpPath(dataDir string, collectiveID ids.CollectiveID) string {
	return filepath.Join(dataDir, collectiveID.String()+".hnswdump.bin")
}

// Save atomically writes the sidecar metadata file and, best-effort,
// a graph-dump file (see saveDump). A dump-file failure
// is non-fatal: it is logged and ignored, since storage remains the
// source of truth and the next open rebuilds from there regardless.
func (idx *Index) Save(dataDir string, collectiveID ids.CollectiveID) error {
	if err := idx.SaveMeta(MetaPath(dataDir, collectiveID)); err != nil {
		return err
	}
	if err := idx.saveDump(dumpPath(dataDir, collectiveID)); err != nil {
		log.WithCollective(collectiveID.String()).Warn("failed to persist vector graph dump (non-fatal)", "error", err)
	}
	return nil
}

// saveDump writes a small JSON file recording only the graph's node
// count; no vectors or edges are written, so the graph cannot be
// restored from it. It is never read back on open (see
// RebuildFromEmbeddings): storage is always the source of truth.
func (idx *Index) saveDump(path string) error {
	idx.mu.RLock()
	n := idx.graph.Len()
	idx.mu.RUnlock()
	data, err := json.Marshal(struct {
		NodeCount int `json:"node_count"`
	}{NodeCount: n})
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SaveMeta writes the index's sidecar metadata to path as JSON,
// atomically (write to a temp file, then rename).
func (idx *Index) SaveMeta(path string) error {
	idx.mu.RLock()
	deleted := make([]string, 0, len(idx.deleted))
	for expID := range idx.deleted {
		deleted = append(deleted, expID.String())
	}
	idMap := make([][2]string, 0, len(idx.idToEntity))
	for internalID, expID := range idx.idToEntity {
		idMap = append(idMap, [2]string{expID.String(), uint64ToString(internalID)})
	}
	sidecar := sidecarFile{
		Dimension: idx.dimension,
		NextID:    idx.nextID,
		IDMap:     idMap,
		Deleted:   deleted,
	}
	idx.mu.RUnlock()

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return pulseerr.IO("failed to marshal vector index sidecar", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return pulseerr.IO("failed to write vector index sidecar", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return pulseerr.IO("failed to finalize vector index sidecar", err)
	}
	return nil
}

// LoadMeta reads a previously-saved sidecar from path and reapplies its
// soft-deleted set to idx by experience id, the only part of the
// sidecar rebuild-from-storage actually needs (id_map and next_id are
// reconstructed fresh by RebuildFromEmbeddings). A missing file is not
// an error: a brand-new collective has no sidecar yet.
func (idx *Index) LoadMeta(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return pulseerr.IO("failed to read vector index sidecar", err)
	}
	var sidecar sidecarFile
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return pulseerr.Corrupted("vector index sidecar undecodable: " + err.Error())
	}
	for _, s := range sidecar.Deleted {
		expID, err := ids.ExperienceIDFromString(s)
		if err != nil {
			// Entries that do not parse as an experience id are
			// skipped. Ids no longer in the index (experiences
			// hard-deleted from storage) are ignored by Delete.
			continue
		}
		idx.Delete(expID)
	}
	return nil
}

// RemoveFiles deletes a collective's vector index sidecar and any
// graph-dump files whose name begins with the collective id and
// contains "hnswdump", used by delete_collective after the
// collective's storage rows are gone. A missing file is not an error.
func RemoveFiles(dataDir string, collectiveID ids.CollectiveID) error {
	if err := os.Remove(MetaPath(dataDir, collectiveID)); err != nil && !os.IsNotExist(err) {
		return pulseerr.IO("failed to remove vector index sidecar", err)
	}
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return pulseerr.IO("failed to list vector index directory", err)
	}
	prefix := collectiveID.String()
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.Contains(name, "hnswdump") {
			if err := os.Remove(filepath.Join(dataDir, name)); err != nil && !os.IsNotExist(err) {
				return pulseerr.IO("failed to remove vector graph dump", err)
			}
		}
	}
	return nil
}

func uint64ToString(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
