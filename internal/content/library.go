package content

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

// Library holds the loaded collections, keyed by collection name.
type Library struct {
	collections map[string][]Document
}

// LoadLibrary loads every collection from fsys.
func LoadLibrary(fsys fs.FS, collections ...Collection) (*Library, error) {
	lib := &Library{collections: make(map[string][]Document, len(collections))}
	var errs []error
	for _, c := range collections {
		if _, dup := lib.collections[c.Name]; dup {
			errs = append(errs, fmt.Errorf("collection %s defined twice", c.Name))
			continue
		}
		docs, err := c.Load(fsys)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lib.collections[c.Name] = docs
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return lib, nil
}

// Collections returns the collection names in sorted order.
func (l *Library) Collections() []string {
	names := make([]string, 0, len(l.collections))
	for name := range l.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Documents returns the documents of a collection.
func (l *Library) Documents(collection string) []Document {
	return l.collections[collection]
}

// Find looks a document up by collection and slug.
func (l *Library) Find(collection, slug string) (Document, bool) {
	for _, d := range l.collections[collection] {
		if d.Slug == slug {
			return d, true
		}
	}
	return Document{}, false
}
