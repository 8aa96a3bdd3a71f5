package services

import (
	"regexp"
	"strings"
)

// directivePattern matches inline filters such as "state:CO",
// "jurisdiction:CO,MI" or "type:licensing".
var directivePattern = regexp.MustCompile(`(?i)(?:^|\s)(state|jurisdiction|type|doctype):([\w-]+(?:,[\w-]+)*)`)

// queryDirectives is a query split into semantic text and filters.
type queryDirectives struct {
	Query         string
	Jurisdictions []string
	DocumentTypes []string
}

// parseDirectives strips filter directives from q and returns them separately.
// Jurisdictions are upper-cased and document types lower-cased.
func parseDirectives(q string) queryDirectives {
	var d queryDirectives
	for _, m := range directivePattern.FindAllStringSubmatch(q, -1) {
		for _, v := range strings.Split(m[2], ",") {
			switch strings.ToLower(m[1]) {
			case "state", "jurisdiction":
				d.Jurisdictions = appendUnique(d.Jurisdictions, strings.ToUpper(v))
			default:
				d.DocumentTypes = appendUnique(d.DocumentTypes, strings.ToLower(v))
			}
		}
	}
	d.Query = strings.Join(strings.Fields(directivePattern.ReplaceAllString(q, " ")), " ")
	return d
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		dup := false
		for _, have := range list {
			if have == v {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}
