package config

import (
	"fmt"
	"regexp"

	"omniex/pkg/core"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Endpoint is one compiled entry of a backend's catalogue: an access tier, an
// HTTP verb, and a path template with its extracted placeholders.
type Endpoint struct {
	Tier         core.AccessTier
	Verb         string
	Template     string
	Placeholders []string
}

// Expand substitutes the endpoint's placeholders from params and returns the
// concrete path together with the remaining parameters. A parameter consumed
// by a placeholder never appears in the remainder; a missing placeholder
// value is an error.
func (e *Endpoint) Expand(params core.Params) (string, core.Params, error) {
	rest := params.Clone()
	path := e.Template
	for _, name := range e.Placeholders {
		v, ok := rest[name]
		if !ok {
			return "", nil, fmt.Errorf("missing value for path placeholder {%s} in %s", name, e.Template)
		}
		path = placeholderPattern.ReplaceAllStringFunc(path, func(m string) string {
			if m == "{"+name+"}" {
				return fmt.Sprintf("%v", v)
			}
			return m
		})
		delete(rest, name)
	}
	return path, rest, nil
}

// Catalogue is the compiled endpoint registry of one backend, keyed by
// (tier, verb, template). It is built once at initialization; no runtime
// synthesis happens afterwards.
type Catalogue struct {
	endpoints map[string]*Endpoint
}

func catalogueKey(tier core.AccessTier, verb, template string) string {
	return tier.String() + " " + verb + " " + template
}

// compileCatalogue builds the registry from the definition's api section:
// api.<tier>.<verb> -> list of path templates. An undeclared access tier or
// a tier without a base URL is a configuration error surfaced here, at
// initialization, never at call time.
func compileCatalogue(backendID string, api Document, apiURLs map[string]string) (*Catalogue, error) {
	cat := &Catalogue{endpoints: make(map[string]*Endpoint)}
	for tierName, verbsRaw := range api {
		tier, ok := core.ParseAccessTier(tierName)
		if !ok {
			return nil, core.NewConfigurationError(backendID,
				fmt.Sprintf("catalogue references undeclared access tier %q", tierName))
		}
		if apiURLs[tierName] == "" {
			return nil, core.NewConfigurationError(backendID,
				fmt.Sprintf("no base URL declared for access tier %q", tierName))
		}
		verbs, ok := asDocument(verbsRaw)
		if !ok {
			return nil, core.NewConfigurationError(backendID,
				fmt.Sprintf("catalogue tier %q is not a verb mapping", tierName))
		}
		for verb := range verbs {
			for _, template := range verbs.Strings(verb) {
				ep := &Endpoint{
					Tier:         tier,
					Verb:         normalizeVerb(verb),
					Template:     template,
					Placeholders: extractPlaceholders(template),
				}
				cat.endpoints[catalogueKey(tier, ep.Verb, template)] = ep
			}
		}
	}
	return cat, nil
}

func normalizeVerb(verb string) string {
	switch verb {
	case "get", "GET":
		return "GET"
	case "post", "POST":
		return "POST"
	case "put", "PUT":
		return "PUT"
	case "delete", "DELETE":
		return "DELETE"
	default:
		return verb
	}
}

func extractPlaceholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Lookup resolves an endpoint by tier, verb and template.
func (c *Catalogue) Lookup(tier core.AccessTier, verb, template string) (*Endpoint, bool) {
	ep, ok := c.endpoints[catalogueKey(tier, normalizeVerb(verb), template)]
	return ep, ok
}

// Len returns the number of compiled endpoints.
func (c *Catalogue) Len() int {
	return len(c.endpoints)
}
