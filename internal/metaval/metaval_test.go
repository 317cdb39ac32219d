package metaval

import (
	"encoding/json"
	"testing"
)

func TestObjectHasKeyAfterSet(t *testing.T) {
	o := NewObject()
	o.Set("color", String("red"))
	if !o.HasKey("color") {
		t.Error("expected HasKey(color) true")
	}
	if o.HasKey("size") {
		t.Error("expected HasKey(size) false")
	}
}

func TestNilObjectHasNoKeys(t *testing.T) {
	var o *Object
	if o.HasKey("anything") {
		t.Error("nil object should have no keys")
	}
	if o.Len() != 0 {
		t.Error("nil object should have length 0")
	}
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Number(1))
	o.Set("a", Number(2))
	o.Set("m", Number(3))
	want := []string{"z", "a", "m"}
	got := o.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestObjectOverwriteKeepsOrder(t *testing.T) {
	o := NewObject()
	o.Set("a", Number(1))
	o.Set("b", Number(2))
	o.Set("a", Number(99))
	got := o.Keys()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
	v, _ := o.Get("a")
	n, _ := v.AsNumber()
	if n != 99 {
		t.Errorf("Get(a) = %v, want 99", n)
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Number(3.5),
		String("hello"),
		List([]Value{Number(1), String("two"), Bool(false)}),
	}
	for _, v := range cases {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", v, err)
		}
		var back Value
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if back.Kind() != v.Kind() {
			t.Errorf("round trip kind = %v, want %v", back.Kind(), v.Kind())
		}
	}
}

func TestObjectJSONRoundTrip(t *testing.T) {
	o := NewObject()
	o.Set("name", String("widget"))
	o.Set("qty", Number(7))
	o.Set("tags", List([]Value{String("a"), String("b")}))

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	back := NewObject()
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	for _, key := range []string{"name", "qty", "tags"} {
		if !back.HasKey(key) {
			t.Errorf("expected key %q after round trip", key)
		}
	}
}

func TestObjectAsValueNestedRoundTrip(t *testing.T) {
	inner := NewObject()
	inner.Set("nested", Bool(true))
	outer := NewObject()
	outer.Set("child", FromObject(inner))

	data, err := json.Marshal(outer)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	back := NewObject()
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	childVal, ok := back.Get("child")
	if !ok {
		t.Fatal("expected child key")
	}
	childObj, ok := childVal.AsObject()
	if !ok {
		t.Fatal("expected child to decode as object")
	}
	if !childObj.HasKey("nested") {
		t.Error("expected nested key inside child object")
	}
}

func TestSortedKeysIndependentOfInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Null())
	o.Set("a", Null())
	got := o.SortedKeys()
	if got[0] != "a" || got[1] != "z" {
		t.Errorf("SortedKeys() = %v, want [a z]", got)
	}
}
