package realm

// Realm is the tenant identifier that partitions the portal by organization
// or brand. It is derived once per tab and then read back from storage.
type Realm string

func (r Realm) String() string {
	return string(r)
}
