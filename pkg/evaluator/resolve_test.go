package evaluator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooshifrew/fhirpath-go/pkg/parser"
	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

func resolveEval(t *testing.T, expression string, document interface{}) (types.Collection, error) {
	t.Helper()
	expr, err := parser.Parse(expression)
	require.NoError(t, err, "parse %q", expression)
	return New().Eval(context.Background(), expr, document)
}

func observationWithSubject(ref string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Observation",
		"id":           "obs1",
		"subject":      map[string]interface{}{"reference": ref},
	}
}

func TestResolveContainedFragment(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Observation",
		"id":           "obs1",
		"contained": []interface{}{
			map[string]interface{}{"resourceType": "Patient", "id": "p1", "active": true},
			map[string]interface{}{"resourceType": "Practitioner", "id": "dr1"},
		},
		"subject": map[string]interface{}{"reference": "#p1"},
	}

	result, err := resolveEval(t, "Observation.subject.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)

	resolved, ok := result[0].(types.Resource)
	require.True(t, ok, "resolved item must be a Resource")
	assert.Equal(t, "Patient", resolved.ResourceType())
	assert.Equal(t, "p1", resolved.ID())
}

func TestResolveEmptyFragmentIsContainer(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Observation",
		"id":           "obs1",
		"subject":      map[string]interface{}{"reference": "#"},
	}
	result, err := resolveEval(t, "Observation.subject.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	resolved := result[0].(types.Resource)
	assert.Equal(t, "obs1", resolved.ID())
}

func TestResolveUnknownFragmentYieldsEmpty(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Observation",
		"subject":      map[string]interface{}{"reference": "#missing"},
	}
	result, err := resolveEval(t, "Observation.subject.resolve()", doc)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestResolveInBundleByFullURL(t *testing.T) {
	fullURL := "urn:uuid:" + uuid.NewString()
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"fullUrl":  fullURL,
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
			map[string]interface{}{
				"fullUrl":  "urn:uuid:" + uuid.NewString(),
				"resource": observationWithSubject(fullURL),
			},
		},
	}

	result, err := resolveEval(t, "Bundle.entry.resource.ofType(Observation).subject.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	resolved := result[0].(types.Resource)
	assert.Equal(t, "Patient", resolved.ResourceType())
	assert.Equal(t, "p1", resolved.ID())
}

func TestResolveInBundleByTypeAndID(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
			map[string]interface{}{
				"resource": observationWithSubject("Patient/p1"),
			},
		},
	}

	result, err := resolveEval(t, "Bundle.entry.resource.ofType(Observation).subject.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "p1", result[0].(types.Resource).ID())
}

func TestResolveInBundleByFullURLTail(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"fullUrl": "https://fhir.example.org/base/Patient/p1",
				// The entry resource has no id of its own; only the
				// fullUrl tail identifies it.
				"resource": map[string]interface{}{"resourceType": "Patient", "active": true},
			},
			map[string]interface{}{
				"resource": observationWithSubject("Patient/p1"),
			},
		},
	}

	result, err := resolveEval(t, "Bundle.entry.resource.ofType(Observation).subject.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Patient", result[0].(types.Resource).ResourceType())
}

func TestResolveFullURLExactMatchWins(t *testing.T) {
	// An exact fullUrl hit must win over a later type/id match even when
	// the type/id entry appears first in the list.
	ref := "https://fhir.example.org/base/Patient/p1"
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Patient", "id": "p1", "_marker": "by-type-id",
				},
			},
			map[string]interface{}{
				"fullUrl": ref,
				"resource": map[string]interface{}{
					"resourceType": "Patient", "id": "p1", "_marker": "by-full-url",
				},
			},
			map[string]interface{}{
				"resource": observationWithSubject(ref),
			},
		},
	}

	result, err := resolveEval(t, "Bundle.entry.resource.ofType(Observation).subject.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	marker, _ := result[0].(types.Resource).GetString("_marker")
	assert.Equal(t, "by-full-url", marker)
}

func TestResolveInParameters(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Parameters",
		"parameter": []interface{}{
			map[string]interface{}{
				"name": "outer",
				"part": []interface{}{
					map[string]interface{}{
						"name":     "inner",
						"resource": map[string]interface{}{"resourceType": "Patient", "id": "p9"},
					},
				},
			},
			map[string]interface{}{
				"name":     "ref",
				"resource": observationWithSubject("Patient/p9"),
			},
		},
	}

	result, err := resolveEval(t, "Parameters.parameter.resource.ofType(Observation).subject.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "p9", result[0].(types.Resource).ID())
}

func TestResolveSelfReference(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Patient",
		"id":           "p1",
		"link": []interface{}{
			map[string]interface{}{
				"other": map[string]interface{}{"reference": "Patient/p1"},
			},
		},
	}
	result, err := resolveEval(t, "Patient.link.other.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "p1", result[0].(types.Resource).ID())
}

func TestResolveBundleSelfMatch(t *testing.T) {
	// A reference to the root Bundle itself must resolve even though
	// the entry search cannot find it.
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"id":           "b1",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
		},
	}
	result, err := resolveEval(t, "'Bundle/b1'.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	resolved := result[0].(types.Resource)
	assert.Equal(t, "Bundle", resolved.ResourceType())
	assert.Equal(t, "b1", resolved.ID())
}

func TestResolveParametersSelfMatch(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Parameters",
		"id":           "params1",
		"parameter": []interface{}{
			map[string]interface{}{
				"name":     "p",
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
		},
	}
	result, err := resolveEval(t, "'Parameters/params1'.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "params1", result[0].(types.Resource).ID())
}

func TestResolveStringReference(t *testing.T) {
	// A bare string item resolves the same as a Reference object.
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
		},
	}
	result, err := resolveEval(t, "'Patient/p1'.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "p1", result[0].(types.Resource).ID())
}

func TestResolveSkipBehavior(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
		},
	}

	tests := []struct {
		name string
		expr string
	}{
		{"non-reference string", "'not a reference'.resolve()"},
		{"integer input", "(42).resolve()"},
		{"unresolvable type id", "'Practitioner/nobody'.resolve()"},
		{"reference with query only", "'Patient/unknown?x=1'.resolve()"},
		{"empty input", "{}.resolve()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := resolveEval(t, tt.expr, doc)
			require.NoError(t, err)
			assert.Empty(t, result, "unresolvable reference must contribute nothing")
		})
	}
}

func TestResolveMixedCollection(t *testing.T) {
	// Resolvable and unresolvable items mix freely; order is preserved.
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p2"},
			},
		},
	}
	result, err := resolveEval(t, "('Patient/p2' | 'Patient/none' | 'Patient/p1').resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "p2", result[0].(types.Resource).ID())
	assert.Equal(t, "p1", result[1].(types.Resource).ID())
}

func TestResolveQueryAndFragmentStripping(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
		},
	}
	for _, ref := range []string{"Patient/p1?ver=2", "Patient/p1#frag"} {
		result, err := resolveEval(t, "'"+ref+"'.resolve()", doc)
		require.NoError(t, err)
		require.Len(t, result, 1, "ref %q", ref)
		assert.Equal(t, "p1", result[0].(types.Resource).ID())
	}
}

func TestResolveRejectsArguments(t *testing.T) {
	_, err := resolveEval(t, "subject.resolve('arg')", observationWithSubject("#p1"))
	require.Error(t, err)
	var ae *types.ArityError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "resolve", ae.Name)
	assert.Equal(t, 0, ae.Max)
}

func TestResolveResultDoesNotAliasDocument(t *testing.T) {
	inner := map[string]interface{}{"resourceType": "Patient", "id": "p1", "active": true}
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{"resource": inner},
		},
	}
	result, err := resolveEval(t, "'Patient/p1'.resolve()", doc)
	require.NoError(t, err)
	require.Len(t, result, 1)

	// Mutating the resolved copy must never write through to the source.
	result[0].(types.Resource).Data()["active"] = false
	assert.Equal(t, true, inner["active"])
}

func TestResolveIsIdempotentOverSameDocument(t *testing.T) {
	doc := map[string]interface{}{
		"resourceType": "Bundle",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Patient", "id": "p1"},
			},
		},
	}
	first, err := resolveEval(t, "'Patient/p1'.resolve()", doc)
	require.NoError(t, err)
	second, err := resolveEval(t, "'Patient/p1'.resolve()", doc)
	require.NoError(t, err)
	assert.True(t, types.Collection(first).Equal(second), "resolution must be deterministic")
}
