// Package site builds reports on disk: a single page with [Render], or a
// linked collection of pages with [Build].
//
// A collection is laid out flat in one project directory. The cover page
// keeps the name of the output path, every content page is named after its
// sanitized title, and all pages share one data/ directory in which each
// dataset appears exactly once:
//
//	report/
//	  report.html        cover
//	  overview.html      content page "Overview"
//	  regional_sales.html
//	  pages.json         collection manifest
//	  data/sales.csv
//	  ...
//
// Pages link to each other by title: an attribute href="page:Overview"
// anywhere in a page is rewritten to the file of the page titled Overview.
//
// A build is validated completely before the first file is written: format
// agreement, file name clashes, conflicting datasets and unknown page links
// all fail without touching the output directory.
package site
