// Package transform compiles and caches transform programs.
//
// A program is a pongo2 template with an optional YAML header between "---"
// lines. The header declares the output settings (method, media type,
// encoding, indentation), the extension namespaces the program calls into
// and the parameters it requires:
//
//	---
//	output:
//	  method: html
//	  media-type: text/html
//	namespaces:
//	  data: urn:DataPlugin
//	required: [Model]
//	---
//	<h1>{{ data.Page("/").Value("@title") }}</h1>
//
// Cache compiles each program once and keeps it until a file changes under
// the directories it depends on. Watcher feeds those changes from fsnotify.
package transform
