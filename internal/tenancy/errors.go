package tenancy

import "fmt"

// TenantScopingError indicates a caller attempted a data-store operation
// that cannot be proven to stay inside one clinic's rows. It is a
// programmer error, not a user-facing condition: callers must switch to a
// filtered bulk variant, never swallow this.
type TenantScopingError struct {
	Collection string
	Verb       string
	Reason     string
}

func (e *TenantScopingError) Error() string {
	return fmt.Sprintf("tenancy: unsafe %s on %q: %s", e.Verb, e.Collection, e.Reason)
}
