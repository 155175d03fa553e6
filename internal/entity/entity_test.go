package entity

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	d, err := Lookup(Alias)
	if err != nil {
		t.Fatalf("Lookup(alias): %v", err)
	}
	if d.Table != "domain_aliases" || d.StatusCol != "alias_status" {
		t.Fatalf("alias def = %+v", d)
	}

	if _, err := Lookup("plugin"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("unknown kind: err = %v", err)
	}
}

func TestDefHelpers(t *testing.T) {
	sub := MustLookup(Subdomain)
	if got := sub.From(); got != "subdomain LEFT JOIN domain ON domain.domain_id = subdomain.domain_id" {
		t.Errorf("From() = %q", got)
	}
	if got := sub.Column(sub.StatusCol); got != "subdomain.subdomain_status" {
		t.Errorf("Column() = %q", got)
	}

	cust := MustLookup(Customer)
	if got := cust.Where("admin_id = ?"); got != "admin_type = 'user' AND admin_id = ?" {
		t.Errorf("Where() = %q", got)
	}
	if got := MustLookup(Mail).Where("mail_id = ?"); got != "mail_id = ?" {
		t.Errorf("Where() without filter = %q", got)
	}
}

func TestAllOrdered(t *testing.T) {
	all := All()
	if len(all) != 13 {
		t.Fatalf("All() returned %d kinds", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Kind >= all[i].Kind {
			t.Fatalf("All() not sorted at %d: %s >= %s", i, all[i-1].Kind, all[i].Kind)
		}
	}
}
