// Package definition loads toolbar button definitions from JSON or YAML
// documents and builds them into buttons for a given actor and request
// values. Entries may be guarded by a permission (`can`) or a condition rule
// (`if`), translated through `textKey`, templated with pongo2 and sanitized
// with bluemonday before being realized.
//
//	toolbars:
//	  users:
//	    - extend: excel
//	      can: export-data
//	    - extend: collection
//	      text: Export
//	      buttons: [csv, pdf]
package definition
