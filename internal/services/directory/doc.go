// Package directory resolves the catalog's publisher directory and the
// organization registry used to enrich publishers with contact details.
package directory
