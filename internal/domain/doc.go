// Package domain contains the core business entities, value objects, and
// domain logic of the application: users, the documents they upload, and
// the audit records kept for bulk operations. Entities validate themselves
// and own their legal state transitions; persistence and task orchestration
// live elsewhere.
package domain
