package value_test

import (
	"testing"

	"github.com/kaspervalen/goq/pkg/value"
)

func TestObjectInsertionOrder(t *testing.T) {
	o := value.NewObject()
	o.Set("b", 1.0)
	o.Set("a", 2.0)
	o.Set("b", 3.0) // overwrite must not move the key

	want := []string{"b", "a"}
	got := o.Keys()
	if len(got) != len(want) {
		t.Fatalf("got keys %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got keys %v, want %v", got, want)
		}
	}
	v, ok := o.Get("b")
	if !ok || v.(float64) != 3.0 {
		t.Fatalf("overwrite did not take effect, got %v", v)
	}
}

func TestObjectSortedKeys(t *testing.T) {
	o := value.NewObject()
	o.Set("z", 1.0)
	o.Set("a", 2.0)
	got := o.SortedKeys()
	want := []string{"a", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestObjectClone(t *testing.T) {
	o := value.NewObject()
	o.Set("a", 1.0)
	c := o.Clone()
	c.Set("b", 2.0)
	if o.Len() != 1 {
		t.Fatalf("cloning mutated the original: len=%d", o.Len())
	}
	if c.Len() != 2 {
		t.Fatalf("clone did not pick up the new key: len=%d", c.Len())
	}
}

func TestTypeName(t *testing.T) {
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.NullValue, "null"},
		{true, "boolean"},
		{1.0, "number"},
		{"s", "string"},
		{[]value.Value{}, "array"},
		{value.NewObject(), "object"},
	}
	for _, tc := range cases {
		if got := value.TypeName(tc.v); got != tc.want {
			t.Errorf("TypeName(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    value.Value
		want bool
	}{
		{value.NullValue, false},
		{false, false},
		{true, true},
		{0.0, true},
		{"", true},
		{[]value.Value{}, true},
	}
	for _, tc := range cases {
		if got := value.Truthy(tc.v); got != tc.want {
			t.Errorf("Truthy(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestCompareTotalOrder(t *testing.T) {
	// null < false < true < number < string < array < object
	ordered := []value.Value{
		value.NullValue,
		false,
		true,
		1.0,
		"s",
		[]value.Value{1.0},
		value.NewObject(),
	}
	for i := 0; i < len(ordered)-1; i++ {
		if value.Compare(ordered[i], ordered[i+1]) >= 0 {
			t.Errorf("expected %v < %v", ordered[i], ordered[i+1])
		}
		if value.Compare(ordered[i+1], ordered[i]) <= 0 {
			t.Errorf("expected %v > %v", ordered[i+1], ordered[i])
		}
	}
}

func TestCompareArraysLexicographic(t *testing.T) {
	a := []value.Value{1.0, 2.0}
	b := []value.Value{1.0, 3.0}
	if value.Compare(a, b) >= 0 {
		t.Fatalf("expected [1,2] < [1,3]")
	}
	c := []value.Value{1.0}
	if value.Compare(c, a) >= 0 {
		t.Fatalf("expected a shorter prefix to sort first")
	}
}

func TestCompareObjectsBySortedKeys(t *testing.T) {
	a := value.NewObject()
	a.Set("a", 1.0)
	b := value.NewObject()
	b.Set("b", 1.0)
	if value.Compare(a, b) >= 0 {
		t.Fatalf(`expected {"a":1} < {"b":1}`)
	}
}

func TestEqualDistinctTypesNeverEqual(t *testing.T) {
	if value.Equal(value.NullValue, value.NewObject()) {
		t.Fatalf("null and an empty object must not be equal")
	}
	if value.Equal(0.0, false) {
		t.Fatalf("0 and false must not be equal")
	}
}

func TestEqualDeepStructural(t *testing.T) {
	a := []value.Value{1.0, "x", value.NewObject()}
	b := []value.Value{1.0, "x", value.NewObject()}
	if !value.Equal(a, b) {
		t.Fatalf("expected deep-equal arrays to be equal")
	}

	oa := value.NewObject()
	oa.Set("k", 1.0)
	ob := value.NewObject()
	ob.Set("k", 1.0)
	if !value.Equal(oa, ob) {
		t.Fatalf("expected deep-equal objects to be equal regardless of key insertion order identity")
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	src := `{"b":1,"a":[1,2,3],"c":{"z":true,"y":null}}`
	v, err := value.DecodeString(src)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	out, err := value.EncodeToString(v)
	if err != nil {
		t.Fatalf("EncodeToString: %v", err)
	}
	if out != src {
		t.Fatalf("round trip did not preserve key order: got %q, want %q", out, src)
	}
}

func TestDecodePreservesInsertionOrderNotSorted(t *testing.T) {
	v, err := value.DecodeString(`{"z":1,"a":2}`)
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	obj, ok := v.(*value.Object)
	if !ok {
		t.Fatalf("expected *value.Object, got %T", v)
	}
	keys := obj.Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Fatalf("got keys %v, want [z a]", keys)
	}
}

func TestDecodeNullIsSentinel(t *testing.T) {
	v, err := value.DecodeString("null")
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if _, ok := v.(value.Null); !ok {
		t.Fatalf("expected value.Null, got %T(%v)", v, v)
	}
}
