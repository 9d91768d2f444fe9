// Package catalog discovers versioned migration files and derives their total
// order.
//
// Files follow the NNN_description.ext convention. They are ordered by the
// numeric prefix, then by an explicit tie-break list for files sharing a
// prefix, then by name:
//
//	r := catalog.NewResolver(catalog.Config{
//		Dir:       "db/migrations",
//		TieBreaks: []string{"006_add_sensor_battery.sql", "006_add_crop_yield.sql"},
//	})
//
//	c, ok, err := r.Resolve(ctx)
//	if !ok {
//		// c is the last-known-good order, err says why the scan failed
//	}
//
// # Catalog file
//
// Every successful resolution overwrites the catalog file (by default
// db/migrations.order), which is only read back when the directory cannot be
// scanned. Its first line is an h1 hash over every entry, and each entry's
// hash chains the previous one, so a hand-edited or truncated file is
// rejected instead of silently changing the order:
//
//	h1:ySnflG/4u/8dmwZf9dJvV6a0tD2HB9n1MfxfhX/trJI=
//	001_create_farms.sql h1:n0X+FQvixJhCoHaEPCs61GWaZbm5t2UMyRlMy9Vyi0s=
//	002_create_crops.sql h1:LDrvgSzGA9ptldHx9LDzWY7QK+zOaD9lcUIZvPdQ+8E=
package catalog
