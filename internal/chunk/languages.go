package chunk

import (
	"path/filepath"
	"strings"
)

// codeExtensions are chunked with line windows.
var codeExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".mjs": {}, ".cjs": {},
	".go": {}, ".rs": {}, ".java": {}, ".kt": {}, ".kts": {}, ".scala": {},
	".c": {}, ".h": {}, ".cc": {}, ".cpp": {}, ".cxx": {}, ".hpp": {}, ".hxx": {},
	".cs": {}, ".rb": {}, ".php": {}, ".sh": {}, ".bash": {}, ".zsh": {}, ".fish": {},
	".swift": {}, ".m": {}, ".mm": {}, ".lua": {}, ".pl": {}, ".pm": {}, ".r": {},
	".jl": {}, ".ex": {}, ".exs": {}, ".erl": {}, ".hs": {},
	".clj": {}, ".cljs": {}, ".cljc": {}, ".sql": {},
	".yaml": {}, ".yml": {}, ".toml": {}, ".ini": {}, ".json": {}, ".jsonc": {},
	".css": {}, ".scss": {}, ".sass": {}, ".less": {},
	".vue": {}, ".svelte": {}, ".astro": {}, ".graphql": {}, ".gql": {},
	".proto": {}, ".tf": {}, ".hcl": {}, ".dockerfile": {},
}

// docExtensions are chunked with token windows.
var docExtensions = map[string]struct{}{
	".md": {}, ".markdown": {}, ".mkd": {}, ".txt": {}, ".rst": {}, ".rest": {},
	".html": {}, ".htm": {}, ".adoc": {}, ".asciidoc": {}, ".org": {}, ".tex": {},
}

// ignoredDirs are path components that are never indexed, mirroring common
// build and dependency directories.
var ignoredDirs = map[string]struct{}{
	"node_modules": {}, ".git": {}, "__pycache__": {}, ".venv": {}, "venv": {},
	"dist": {}, "build": {}, ".next": {}, ".nuxt": {}, "coverage": {},
	".pytest_cache": {}, ".mypy_cache": {}, ".tox": {}, ".eggs": {},
	".cache": {}, ".sass-cache": {}, "bower_components": {},
}

// IsCode reports whether the file extension belongs to the code set.
func IsCode(path string) bool {
	_, ok := codeExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsDoc reports whether the file extension belongs to the documentation set.
func IsDoc(path string) bool {
	_, ok := docExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsIndexable reports whether the extension is in either set.
func IsIndexable(path string) bool {
	return IsCode(path) || IsDoc(path)
}

// InIgnoredDir reports whether any component of the slash-separated relative
// path is an always-ignored directory.
func InIgnoredDir(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if _, ok := ignoredDirs[part]; ok {
			return true
		}
	}
	return false
}
