package parser

import (
	"strings"
)

const (
	ROOT_COMPONENT    = "[root]"
	UNKNOWN_COMPONENT = "[<unknown>]"
	CORRUPT_COMPONENT = "[<corrupt>]"
)

// EnumeratePath resolves ref to a full path by walking parents up to
// the root. The result is cached until ref is remapped.
func (self *FolderMapping) EnumeratePath(ref EntryReference) string {
	self.mu.Lock()
	defer self.mu.Unlock()

	cached, pres := self.lru.Get(ref)
	if pres {
		self.hits++
		return cached
	}
	self.misses++

	result := []string{}
	seen := make(map[EntryReference]bool)
	current := ref

	for {
		if current.IsRoot() {
			result = append(result, ROOT_COMPONENT)
			break
		}

		// Parent loops or absurd depths mean the mapping is corrupt.
		if seen[current] || len(seen) >= self.options.MaxDirectoryDepth {
			result = append(result, CORRUPT_COMPONENT)
			break
		}
		seen[current] = true

		self.lookups++
		mapping, pres := self.mapping[current]
		if !pres {
			result = append(result, UNKNOWN_COMPONENT)
			break
		}

		result = append(result, mapping.Name)
		current = mapping.Parent
	}

	// Components were collected leaf first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	full_path := strings.Join(result, "/")
	self.lru.Add(ref, full_path)
	return full_path
}

// FullPath resolves the path of a record through its parent. The
// record's own name is appended because the record may describe a
// file that no longer exists.
func (self *FolderMapping) FullPath(record *USNRecord) string {
	return self.EnumeratePath(record.ParentReference) + "/" + record.FileName
}
