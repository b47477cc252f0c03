// Package dcat assembles the DCAT-AP dataset document submitted to the
// open-data catalog, including the license and access-rights vocabularies.
package dcat
