package main

import "bytes"

// seedRepos populates the file store with a sample repository. The seed
// deliberately includes files the context filter should exclude (a
// node_modules tree, a lockfile, an image, an oversized fixture) and a
// Latin-1 encoded file, so a local run exercises the same paths as
// production.
func seedRepos(s *store) {
	s.seed("acme/widgets", "main", map[string][]byte{
		"README.md":                    []byte(readme()),
		"main.py":                      []byte(mainPy()),
		"widgets/catalog.py":           []byte(catalogPy()),
		"widgets/notes.txt":            latin1Notes(),
		"requirements.txt":             []byte("flask==3.0.0\nrequests==2.32.0\n"),
		"package-lock.json":            []byte("{}\n"),
		"docs/logo.png":                pngStub(),
		"node_modules/lodash/index.js": []byte("module.exports = {};\n"),
		"fixtures/dump.sql":            bytes.Repeat([]byte("insert into widgets values (1);\n"), 100000),
	})
}

func readme() string {
	return `# Widgets

A small inventory service for the acme widget catalog.

## Running

    python main.py
`
}

func mainPy() string {
	return `from widgets.catalog import Catalog

if __name__ == "__main__":
    catalog = Catalog()
    catalog.serve()
`
}

func catalogPy() string {
	return `class Catalog:
    def __init__(self):
        self.items = {}

    def serve(self):
        print(f"serving {len(self.items)} widgets")
`
}

// latin1Notes returns text with a Latin-1 encoded accented byte, invalid
// as UTF-8.
func latin1Notes() []byte {
	return []byte{'c', 'a', 'f', 0xE9, ' ', 'n', 'o', 't', 'e', 's', '\n'}
}

// pngStub returns the PNG magic bytes followed by a NUL, enough for the
// binary detection heuristics.
func pngStub() []byte {
	return []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0x00, 0x00}
}
