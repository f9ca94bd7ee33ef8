package sqlassets

import _ "embed"

//go:embed schema/platform/tenants.sql
var TenantsSQL string

//go:embed schema/tenant_space/users.sql
var UsersSQL string

//go:embed schema/tenant_space/barbers.sql
var BarbersSQL string

//go:embed schema/tenant_space/services.sql
var ServicesSQL string

//go:embed schema/tenant_space/appointments.sql
var AppointmentsSQL string

// All returns the schema DDL in dependency order. tenants must come first so
// tenant-scoped tables can reference it.
func All() []string {
	return []string{TenantsSQL, UsersSQL, BarbersSQL, ServicesSQL, AppointmentsSQL}
}
