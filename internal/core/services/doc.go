// Package services implements the driving ports on top of the driven ports:
// ingestion, search with citations, repair, history, reference data,
// settings and the maintenance scheduler.
package services
