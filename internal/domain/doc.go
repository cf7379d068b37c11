// Package domain holds the value types shared by the engine: contacts and
// their ICP signals, sequences and steps, enrollments, activities and the
// materialized daily actions.
//
// Nothing here touches storage or HTTP. Types may carry JSON and db tags
// and pure validation methods; they must not import other internal
// packages.
package domain
