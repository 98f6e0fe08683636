package fhirpath

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/mooshifrew/fhirpath-go/pkg/evaluator"
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

const patientJSON = `{
	"resourceType": "Patient",
	"id": "example",
	"name": [
		{"use": "official", "family": "Chalmers", "given": ["Peter", "James"]}
	]
}`

func patientDoc(t *testing.T) interface{} {
	t.Helper()
	var doc interface{}
	if err := json.Unmarshal([]byte(patientJSON), &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestEval(t *testing.T) {
	got, err := Eval("Patient.name.family", patientDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	want := types.NewCollection(types.String("Chalmers"))
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", types.Repr(got), types.Repr(want))
	}
}

func TestEvalParseError(t *testing.T) {
	if _, err := Eval("1 +", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCompileOnceEvalMany(t *testing.T) {
	expr, err := Compile("Patient.name.given.count()")
	if err != nil {
		t.Fatal(err)
	}
	doc := patientDoc(t)
	want := types.NewCollection(types.Integer(2))
	for i := 0; i < 3; i++ {
		got, err := EvalCompiled(context.Background(), expr, doc)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(want) {
			t.Errorf("run %d: got %s", i, types.Repr(got))
		}
	}
}

func TestMustCompilePanicsOnBadInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile must panic on a syntax error")
		}
	}()
	MustCompile("((")
}

func TestEvalWithOptions(t *testing.T) {
	got, err := Eval("%threshold", nil,
		evaluator.WithTimeout(time.Second),
		evaluator.WithEnvVar("threshold", types.Integer(10)),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(types.NewCollection(types.Integer(10))) {
		t.Errorf("got %s", types.Repr(got))
	}
}

func TestConcurrentEvaluation(t *testing.T) {
	expr := MustCompile("Patient.name.given")
	doc := patientDoc(t)
	want := types.NewCollection(types.String("Peter"), types.String("James"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := EvalCompiled(context.Background(), expr, doc)
			if err != nil {
				t.Error(err)
				return
			}
			if !got.Equal(want) {
				t.Errorf("got %s", types.Repr(got))
			}
		}()
	}
	wg.Wait()
}

func TestVersion(t *testing.T) {
	if Version() == "" {
		t.Error("Version must not be empty")
	}
}
