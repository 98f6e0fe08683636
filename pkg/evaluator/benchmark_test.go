package evaluator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mooshifrew/fhirpath-go/pkg/parser"
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

var benchPatient = mustDecode(`{
	"resourceType": "Patient",
	"id": "example",
	"active": true,
	"name": [
		{"use": "official", "family": "Chalmers", "given": ["Peter", "James"]},
		{"use": "usual", "given": ["Jim"]}
	],
	"birthDate": "1974-12-25"
}`)

var benchBundle = mustDecode(`{
	"resourceType": "Bundle",
	"entry": [
		{"resource": {"resourceType": "Patient", "id": "p1"}},
		{"resource": {"resourceType": "Patient", "id": "p2"}},
		{"resource": {
			"resourceType": "Observation", "id": "o1",
			"subject": {"reference": "Patient/p2"}
		}}
	]
}`)

func mustDecode(src string) interface{} {
	var doc interface{}
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		panic(err)
	}
	return doc
}

func benchmarkExpr(b *testing.B, expression string, document interface{}) {
	b.Helper()
	expr, err := parser.Parse(expression)
	if err != nil {
		b.Fatal(err)
	}
	eval := New()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eval.Eval(ctx, expr, document); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	const src = "Bundle.entry.resource.ofType(Observation).where(subject.exists()).subject.resolve()"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvalNavigation(b *testing.B) {
	benchmarkExpr(b, "Patient.name.given", benchPatient)
}

func BenchmarkEvalWhere(b *testing.B) {
	benchmarkExpr(b, "Patient.name.where(use = 'official').family", benchPatient)
}

func BenchmarkEvalArithmetic(b *testing.B) {
	benchmarkExpr(b, "(1 + 2 * 3 - 4) div 2", nil)
}

func BenchmarkEvalResolve(b *testing.B) {
	benchmarkExpr(b, "Bundle.entry.resource.ofType(Observation).subject.resolve()", benchBundle)
}

func BenchmarkEvalParallel(b *testing.B) {
	expr, err := parser.Parse("Patient.name.given.count()")
	if err != nil {
		b.Fatal(err)
	}
	eval := New()
	want := types.NewCollection(types.Integer(3))

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			got, err := eval.Eval(ctx, expr, benchPatient)
			if err != nil {
				b.Fatal(err)
			}
			if !got.Equal(want) {
				b.Fatalf("got %s", types.Repr(got))
			}
		}
	})
}
