package editor

import (
	"reflect"
	"testing"
)

func TestForm(t *testing.T) {
	f := NewForm()
	f.SetValue("group-g1-combinator", "OR", true)
	f.SetValue("group-root-combinator", "AND", false)

	if v, ok := f.Value("group-g1-combinator"); !ok || v != "OR" {
		t.Errorf("unexpected value %q", v)
	}
	if f.IsDirty("group-root-combinator") {
		t.Error("clean write marked dirty")
	}
	if got := f.DirtyKeys(); !reflect.DeepEqual(got, []string{"group-g1-combinator"}) {
		t.Errorf("unexpected dirty keys %v", got)
	}

	f.MarkClean()
	if len(f.DirtyKeys()) != 0 {
		t.Error("MarkClean kept dirty keys")
	}
	if _, ok := f.Value("group-g1-combinator"); !ok {
		t.Error("MarkClean dropped values")
	}

	f.Reset()
	if _, ok := f.Value("group-g1-combinator"); ok {
		t.Error("Reset kept values")
	}
}
