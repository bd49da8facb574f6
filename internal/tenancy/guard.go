package tenancy

import (
	"github.com/clinicops/booking-platform/internal/datastore"
)

// Guard wraps a datastore so that every operation on a tenant-scoped
// collection is provably confined to one clinic. Reads get a mandatory
// clinic_id condition merged into their filter, creates get clinic_id
// injected into the payload, and point operations by global id are refused
// outright because a unique id alone does not prove tenant ownership.
// Verbs the guard does not recognize fail closed.
type Guard struct {
	store  *datastore.Store
	scoped map[string]bool
}

// NewGuard wraps store. scopedCollections lists every collection whose rows
// belong to a clinic; anything else passes through unmodified.
func NewGuard(store *datastore.Store, scopedCollections []string) *Guard {
	if store == nil {
		panic("tenancy: datastore required")
	}
	scoped := make(map[string]bool, len(scopedCollections))
	for _, c := range scopedCollections {
		scoped[c] = true
	}
	return &Guard{store: store, scoped: scoped}
}

// Apply executes op, rewriting it first when the target collection is
// tenant-scoped. clinicID must identify the clinic bound to the current
// request.
func (g *Guard) Apply(clinicID string, op datastore.Operation) (*datastore.Result, error) {
	if !g.scoped[op.Collection] {
		return g.store.Apply(op)
	}
	if clinicID == "" {
		return nil, &TenantScopingError{Collection: op.Collection, Verb: string(op.Verb), Reason: "empty clinic id"}
	}

	switch op.Verb {
	case datastore.VerbFindMany, datastore.VerbUpdateMany, datastore.VerbDeleteMany:
		op.Filter = mergeClinicFilter(op.Filter, clinicID)
	case datastore.VerbCreate:
		op.Data = injectClinicID(op.Data, clinicID)
	case datastore.VerbCreateMany:
		records := make([]datastore.Record, len(op.Records))
		for i, rec := range op.Records {
			records[i] = injectClinicID(rec, clinicID)
		}
		op.Records = records
	case datastore.VerbGet, datastore.VerbUpdate, datastore.VerbDelete:
		return nil, &TenantScopingError{
			Collection: op.Collection,
			Verb:       string(op.Verb),
			Reason:     "point operations by global id cannot prove tenant ownership; use the clinic-filtered bulk variant",
		}
	default:
		return nil, &TenantScopingError{Collection: op.Collection, Verb: string(op.Verb), Reason: "unrecognized verb"}
	}

	return g.store.Apply(op)
}

// FindMany returns the records in collection matching filter, always
// restricted to clinicID. A caller-supplied clinic_id in filter is
// overwritten, never trusted.
func (g *Guard) FindMany(clinicID, collection string, filter datastore.Filter) ([]datastore.Record, error) {
	res, err := g.Apply(clinicID, datastore.Operation{Verb: datastore.VerbFindMany, Collection: collection, Filter: filter})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Create inserts one record with clinic_id forced to clinicID.
func (g *Guard) Create(clinicID, collection string, data datastore.Record) (datastore.Record, error) {
	res, err := g.Apply(clinicID, datastore.Operation{Verb: datastore.VerbCreate, Collection: collection, Data: data})
	if err != nil {
		return nil, err
	}
	return res.Records[0], nil
}

// CreateMany inserts records with clinic_id forced to clinicID on each.
func (g *Guard) CreateMany(clinicID, collection string, records []datastore.Record) ([]datastore.Record, error) {
	res, err := g.Apply(clinicID, datastore.Operation{Verb: datastore.VerbCreateMany, Collection: collection, Records: records})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// UpdateMany applies data to every record matching filter within clinicID
// and reports how many rows changed.
func (g *Guard) UpdateMany(clinicID, collection string, filter datastore.Filter, data datastore.Record) (int, error) {
	res, err := g.Apply(clinicID, datastore.Operation{Verb: datastore.VerbUpdateMany, Collection: collection, Filter: filter, Data: data})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// DeleteMany removes every record matching filter within clinicID.
func (g *Guard) DeleteMany(clinicID, collection string, filter datastore.Filter) (int, error) {
	res, err := g.Apply(clinicID, datastore.Operation{Verb: datastore.VerbDeleteMany, Collection: collection, Filter: filter})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

func mergeClinicFilter(f datastore.Filter, clinicID string) datastore.Filter {
	merged := make(datastore.Filter, len(f)+1)
	for k, v := range f {
		merged[k] = v
	}
	merged["clinic_id"] = clinicID
	return merged
}

func injectClinicID(data datastore.Record, clinicID string) datastore.Record {
	out := make(datastore.Record, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["clinic_id"] = clinicID
	return out
}
