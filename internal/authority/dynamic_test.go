package authority

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swandns/internal/errs"
	"swandns/internal/record"
)

type fakeFinder struct {
	records map[record.Key]record.Record
}

func (f fakeFinder) FindUnique(name string, typ record.Type) (record.Record, error) {
	rec, ok := f.records[record.Key{Name: name, Type: typ}]
	if !ok {
		return record.Record{}, errs.ErrNotFound
	}
	return rec, nil
}

func TestDynamicLookupSynthesizesSingleAnswer(t *testing.T) {
	finder := fakeFinder{records: map[record.Key]record.Record{
		{Name: "foo.example.com", Type: record.TypeA}: {
			Name: "foo.example.com", Type: record.TypeA, Data: "127.0.0.3", TTL: 30,
		},
	}}
	dyn := NewDynamic(finder)

	rrs, err := dyn.Lookup(context.Background(), "foo.example.com.", dns.TypeA)
	require.NoError(t, err)
	require.Len(t, rrs, 1)
	a := rrs[0].(*dns.A)
	assert.Equal(t, "127.0.0.3", a.A.String())
	assert.Equal(t, uint32(30), a.Hdr.Ttl)
}

func TestDynamicLookupMissPropagatesNotFound(t *testing.T) {
	dyn := NewDynamic(fakeFinder{records: map[record.Key]record.Record{}})

	_, err := dyn.Lookup(context.Background(), "missing.example.com.", dns.TypeA)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestDynamicLookupUnsupportedTypeIsNotImplemented(t *testing.T) {
	dyn := NewDynamic(fakeFinder{})

	_, err := dyn.Lookup(context.Background(), "example.com.", dns.TypeCNAME)
	assert.Equal(t, errs.KindNotImplemented, errs.KindOf(err))
}
