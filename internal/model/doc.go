// Package model provides the entity types of the point-of-sale core.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal.
//
// Key design constraints:
//   - NO float types for money - Money is an int64 in the shop's currency unit
//   - All JSON tags use snake_case (they double as the remote sync row shape)
//   - Timestamps are UTC, formatted with TimeLayout
//   - Business dates are calendar dates formatted with DateLayout and are
//     never recomputed from CreatedAt
package model
