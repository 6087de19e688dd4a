// Package project owns every filesystem write of a report build.
//
// A [Writer] is created per build for one output path and data format. For
// embedded formats a single page is written next to the output path and no
// directory structure is created. External formats, and every multi-page
// collection, get a project directory named after the output stem:
//
//	report/
//	  report.html        main page
//	  data/sales.csv     one file per external dataset
//	  notes/report.md    editable notes (optional, never overwritten)
//	  open_report.sh     launcher for Chrome/Chromium with file access
//	  open_report.bat
//	  README.md
//
// Each dataset is written at most once per Writer, keyed by registry name.
// The Writer tracks what it wrote in memory rather than probing the
// filesystem, so a build never confuses stale files from an earlier run with
// its own output. Output bytes depend only on the inputs.
package project
