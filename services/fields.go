package services

import (
	"sort"
	"strconv"
	"strings"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/utils"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindRequiredText
	kindPhone
	kindInt
	kindBool
	kindList
	kindLinks
)

const fieldProfileImage = "profileImage"

var commonFields = map[string]fieldKind{
	"name":        kindRequiredText,
	"phone":       kindPhone,
	"location":    kindText,
	"headline":    kindText,
	"techStack":   kindList,
	"socialLinks": kindLinks,
	"resumeLink":  kindText,
	"branch":      kindText,
	"batch":       kindInt,
}

var roleFields = map[string]map[string]fieldKind{
	models.RoleStudent: {
		"dsaProblems": kindInt,
		"isPlaced":    kindBool,
	},
	models.RoleAlumni: {
		"company": kindText,
	},
}

var socialLinkKeys = map[string]bool{
	"linkedin":  true,
	"github":    true,
	"twitter":   true,
	"portfolio": true,
	"leetcode":  true,
	"website":   true,
}

func fieldKindFor(role, name string) (fieldKind, bool) {
	if k, ok := commonFields[name]; ok {
		return k, true
	}
	k, ok := roleFields[role][name]
	return k, ok
}

// buildUpdate turns client fields into $set paths for a record with the given
// role. Keys outside the allowlist and values that cannot be coerced are left
// out and reported in ignored, sorted.
func buildUpdate(role string, fields map[string]interface{}) (set map[string]interface{}, ignored []string) {
	set = make(map[string]interface{})

	for name, raw := range fields {
		kind, ok := fieldKindFor(role, name)
		if !ok {
			ignored = append(ignored, name)
			continue
		}

		if kind == kindLinks {
			ignored = append(ignored, mergeLinks(set, raw)...)
			continue
		}

		value, ok := coerce(kind, raw)
		if !ok {
			ignored = append(ignored, name)
			continue
		}
		set[name] = value
	}

	sort.Strings(ignored)
	return set, ignored
}

func coerce(kind fieldKind, raw interface{}) (interface{}, bool) {
	switch kind {
	case kindText:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		return strings.TrimSpace(s), true
	case kindRequiredText:
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return strings.TrimSpace(s), true
	case kindPhone:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		phone, err := utils.SanitizePhone(s)
		if err != nil {
			return nil, false
		}
		return phone, true
	case kindInt:
		return toInt(raw)
	case kindBool:
		return toBool(raw)
	case kindList:
		return toList(raw)
	}
	return nil, false
}

func toInt(raw interface{}) (interface{}, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return nil, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, false
		}
		return n, true
	}
	return nil, false
}

func toBool(raw interface{}) (interface{}, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return nil, false
}

func toList(raw interface{}) (interface{}, bool) {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			items = append(items, s)
		}
	default:
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, true
}

// mergeLinks sets each known link under its own path so links that were not
// sent keep their stored value.
func mergeLinks(set map[string]interface{}, raw interface{}) []string {
	var links map[string]interface{}
	switch v := raw.(type) {
	case map[string]interface{}:
		links = v
	case map[string]string:
		links = make(map[string]interface{}, len(v))
		for k, s := range v {
			links[k] = s
		}
	default:
		return []string{"socialLinks"}
	}

	var ignored []string
	for key, value := range links {
		s, ok := value.(string)
		if !socialLinkKeys[key] || !ok {
			ignored = append(ignored, "socialLinks."+key)
			continue
		}
		set["socialLinks."+key] = strings.TrimSpace(s)
	}
	return ignored
}
