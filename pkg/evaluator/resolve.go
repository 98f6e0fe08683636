package evaluator

import (
	"strings"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// ResolveFunction implements resolve(): it dereferences literal and
// Reference-object references against the evaluation root. Lookup is
// purely local. Contained resources are found by fragment id, Bundle
// entries by fullUrl or type/id, Parameters resources by walking
// parameter and part trees. A reference that cannot be resolved
// contributes nothing to the output.
type ResolveFunction struct{}

var resolveSignature = &Signature{
	Name:   "resolve",
	Return: types.CollectionOf(types.TypeInfo{Kind: types.ResourceKind}),
}

func (ResolveFunction) Name() string { return "resolve" }

func (ResolveFunction) Signature() *Signature { return resolveSignature }

func (ResolveFunction) Evaluate(args []types.Value, ctx *Context) (types.Value, error) {
	if len(args) != 0 {
		return nil, &types.ArityError{Name: "resolve", Min: 0, Max: 0, Actual: len(args)}
	}
	if types.IsEmpty(ctx.Input()) {
		return types.EmptyValue, nil
	}

	out := make([]types.Value, 0)
	for _, item := range types.Items(ctx.Input()) {
		ref, ok := referenceString(item)
		if !ok {
			continue
		}
		ref = strings.TrimSpace(ref)
		if !isReferencePattern(ref) {
			continue
		}
		if resolved, ok := resolveReference(ref, ctx.Root()); ok {
			out = append(out, resolved)
		}
	}
	return types.NewCollection(out...), nil
}

// referenceString extracts the reference text from an item: either the
// string itself or the reference field of a Reference object.
func referenceString(item types.Value) (string, bool) {
	switch v := item.(type) {
	case types.String:
		return string(v), true
	case types.Resource:
		return v.GetString("reference")
	}
	return "", false
}

// isReferencePattern gates on the shapes a local reference can take:
// a contained fragment, a type/id path, or an absolute URL form.
func isReferencePattern(ref string) bool {
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "#") {
		return true
	}
	if strings.Contains(ref, "/") {
		return true
	}
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "urn:")
}

func resolveReference(ref string, root types.Value) (types.Value, bool) {
	if strings.HasPrefix(ref, "#") {
		return resolveContained(strings.TrimPrefix(ref, "#"), root)
	}
	refType, refID := parseTypeID(ref)
	for _, candidate := range types.Items(root) {
		r, ok := candidate.(types.Resource)
		if !ok {
			continue
		}
		if resolved, ok := resolveAgainstResource(ref, refType, refID, r); ok {
			return resolved, true
		}
	}
	return nil, false
}

// parseTypeID reads the resource type and logical id from the last two
// path segments of a reference, dropping any query or fragment suffix.
func parseTypeID(ref string) (refType, refID string) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	segments := strings.Split(ref, "/")
	if len(segments) >= 2 {
		refType = segments[len(segments)-2]
		refID = segments[len(segments)-1]
	}
	return refType, refID
}

// resolveContained finds a contained resource by fragment id on the
// evaluation root. A bare "#" refers to the container itself, per the
// FHIR reference rules for internal fragment references.
func resolveContained(fragment string, root types.Value) (types.Value, bool) {
	for _, candidate := range types.Items(root) {
		r, ok := candidate.(types.Resource)
		if !ok {
			continue
		}
		if fragment == "" {
			return r.Clone(), true
		}
		contained, ok := r.Get("contained")
		if !ok {
			continue
		}
		list, ok := contained.([]interface{})
		if !ok {
			continue
		}
		for _, raw := range list {
			obj, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			inner := types.NewResource(obj)
			if inner.ID() == fragment {
				return inner.Clone(), true
			}
		}
	}
	return nil, false
}

func resolveAgainstResource(ref, refType, refID string, root types.Resource) (types.Value, bool) {
	switch root.ResourceType() {
	case "Bundle":
		if resolved, ok := resolveInBundle(ref, refType, refID, root); ok {
			return resolved, true
		}
	case "Parameters":
		if resolved, ok := resolveInParameters(refType, refID, root); ok {
			return resolved, true
		}
	}
	// The root itself is a candidate regardless of its type: a Bundle or
	// Parameters miss still falls through to the self-match.
	if refType != "" && root.ResourceType() == refType && root.ID() == refID {
		return root.Clone(), true
	}
	return nil, false
}

// resolveInBundle searches Bundle entries in three tiers: exact fullUrl
// match, entry resource type/id match, then fullUrl tail parse. Tiers
// are checked in order across the whole entry list so an exact fullUrl
// hit always wins.
func resolveInBundle(ref, refType, refID string, bundle types.Resource) (types.Value, bool) {
	raw, ok := bundle.Get("entry")
	if !ok {
		return nil, false
	}
	entries, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}

	type bundleEntry struct {
		fullURL  string
		resource types.Resource
		hasRes   bool
	}
	parsed := make([]bundleEntry, 0, len(entries))
	for _, rawEntry := range entries {
		obj, ok := rawEntry.(map[string]interface{})
		if !ok {
			continue
		}
		e := bundleEntry{}
		if u, ok := obj["fullUrl"].(string); ok {
			e.fullURL = u
		}
		if res, ok := obj["resource"].(map[string]interface{}); ok {
			e.resource = types.NewResource(res)
			e.hasRes = true
		}
		parsed = append(parsed, e)
	}

	for _, e := range parsed {
		if e.hasRes && e.fullURL != "" && e.fullURL == ref {
			return e.resource.Clone(), true
		}
	}
	if refType == "" || refID == "" {
		return nil, false
	}
	for _, e := range parsed {
		if e.hasRes && e.resource.ResourceType() == refType && e.resource.ID() == refID {
			return e.resource.Clone(), true
		}
	}
	for _, e := range parsed {
		if !e.hasRes || e.fullURL == "" {
			continue
		}
		urlType, urlID := parseTypeID(e.fullURL)
		if urlType == refType && urlID == refID {
			return e.resource.Clone(), true
		}
	}
	return nil, false
}

// resolveInParameters walks parameter and nested part entries looking
// for an inline resource with a matching type and id.
func resolveInParameters(refType, refID string, params types.Resource) (types.Value, bool) {
	if refType == "" || refID == "" {
		return nil, false
	}
	raw, ok := params.Get("parameter")
	if !ok {
		return nil, false
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	return searchParams(list, refType, refID)
}

func searchParams(list []interface{}, refType, refID string) (types.Value, bool) {
	for _, rawParam := range list {
		obj, ok := rawParam.(map[string]interface{})
		if !ok {
			continue
		}
		if res, ok := obj["resource"].(map[string]interface{}); ok {
			r := types.NewResource(res)
			if r.ResourceType() == refType && r.ID() == refID {
				return r.Clone(), true
			}
		}
		if parts, ok := obj["part"].([]interface{}); ok {
			if found, ok := searchParams(parts, refType, refID); ok {
				return found, true
			}
		}
	}
	return nil, false
}
