package notion

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PropertyKind is the Notion column type of a property value.
type PropertyKind string

const (
	KindTitle       PropertyKind = "title"
	KindRichText    PropertyKind = "rich_text"
	KindURL         PropertyKind = "url"
	KindCheckbox    PropertyKind = "checkbox"
	KindSelect      PropertyKind = "select"
	KindMultiSelect PropertyKind = "multi_select"
	KindFiles       PropertyKind = "files"
	KindDate        PropertyKind = "date"
	KindStatus      PropertyKind = "status"
)

// decodeOrder is the key probe order used when a property carries no "type".
var decodeOrder = []PropertyKind{
	KindTitle, KindRichText, KindURL, KindCheckbox, KindStatus,
	KindSelect, KindMultiSelect, KindFiles, KindDate,
}

// PropertyValue is a tagged union over the column kinds watchlog reads and
// writes. Only the fields matching Kind are meaningful. A nil Option, URL, or
// Date encodes as JSON null, which clears the column on update.
type PropertyValue struct {
	Kind     PropertyKind
	Text     []RichText
	URL      *string
	Checkbox bool
	Option   *SelectOption
	Options  []SelectOption
	Files    []File
	Date     *Date
}

func TitleValue(text string) PropertyValue {
	return PropertyValue{Kind: KindTitle, Text: textRuns(text)}
}

func RichTextValue(text string) PropertyValue {
	return PropertyValue{Kind: KindRichText, Text: textRuns(text)}
}

// URLValue sets a url column; an empty url clears it.
func URLValue(url string) PropertyValue {
	if url == "" {
		return PropertyValue{Kind: KindURL}
	}
	return PropertyValue{Kind: KindURL, URL: &url}
}

func CheckboxValue(checked bool) PropertyValue {
	return PropertyValue{Kind: KindCheckbox, Checkbox: checked}
}

// SelectValue sets a select column; an empty name clears it.
func SelectValue(name string) PropertyValue {
	if name == "" {
		return PropertyValue{Kind: KindSelect}
	}
	return PropertyValue{Kind: KindSelect, Option: &SelectOption{Name: name}}
}

// StatusValue shapes a status label for the column type the database uses.
func StatusValue(kind StatusKind, name string) PropertyValue {
	v := SelectValue(name)
	v.Kind = kind.propertyKind()
	return v
}

// MultiSelectValue sets a multi_select column. No names yields an explicit
// empty selection.
func MultiSelectValue(names ...string) PropertyValue {
	options := make([]SelectOption, 0, len(names))
	for _, name := range names {
		options = append(options, SelectOption{Name: name})
	}
	return PropertyValue{Kind: KindMultiSelect, Options: options}
}

func FilesValue(files ...File) PropertyValue {
	return PropertyValue{Kind: KindFiles, Files: append([]File{}, files...)}
}

// DateValue sets a date column; an empty start clears it.
func DateValue(start string) PropertyValue {
	if start == "" {
		return PropertyValue{Kind: KindDate}
	}
	return PropertyValue{Kind: KindDate, Date: &Date{Start: start}}
}

// PlainText returns the concatenated text of a title or rich_text value.
func (v PropertyValue) PlainText() string {
	return PlainText(v.Text)
}

// OptionName returns the selected name of a select or status value.
func (v PropertyValue) OptionName() string {
	if v.Option == nil {
		return ""
	}
	return v.Option.Name
}

// OptionNames returns the names of a multi_select value.
func (v PropertyValue) OptionNames() []string {
	names := make([]string, 0, len(v.Options))
	for _, opt := range v.Options {
		names = append(names, opt.Name)
	}
	return names
}

// IsEmpty reports whether the value carries no data.
func (v PropertyValue) IsEmpty() bool {
	switch v.Kind {
	case KindTitle, KindRichText:
		return PlainText(v.Text) == ""
	case KindURL:
		return v.URL == nil || *v.URL == ""
	case KindCheckbox:
		return !v.Checkbox
	case KindSelect, KindStatus:
		return v.Option == nil || v.Option.Name == ""
	case KindMultiSelect:
		return len(v.Options) == 0
	case KindFiles:
		return len(v.Files) == 0
	case KindDate:
		return v.Date == nil || v.Date.Start == ""
	default:
		return true
	}
}

// MarshalJSON encodes the value as {"<kind>": <payload>}.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Kind {
	case KindTitle, KindRichText:
		payload = nonNil(v.Text)
	case KindURL:
		payload = v.URL
	case KindCheckbox:
		payload = v.Checkbox
	case KindSelect, KindStatus:
		payload = v.Option
	case KindMultiSelect:
		payload = nonNil(v.Options)
	case KindFiles:
		payload = nonNil(v.Files)
	case KindDate:
		payload = v.Date
	default:
		return nil, fmt.Errorf("notion: unsupported property kind %q", v.Kind)
	}
	return json.Marshal(map[PropertyKind]any{v.Kind: payload})
}

// UnmarshalJSON decodes a page property. The "type" key selects the payload
// when present; otherwise the first known kind key is used.
func (v *PropertyValue) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind := PropertyKind("")
	if typ, ok := raw["type"]; ok {
		if err := json.Unmarshal(typ, &kind); err != nil {
			return fmt.Errorf("notion: decode property type: %w", err)
		}
	}
	if kind == "" {
		for _, candidate := range decodeOrder {
			if _, ok := raw[string(candidate)]; ok {
				kind = candidate
				break
			}
		}
	}
	*v = PropertyValue{Kind: kind}
	body, ok := raw[string(kind)]
	if !ok || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil
	}
	var err error
	switch kind {
	case KindTitle, KindRichText:
		err = json.Unmarshal(body, &v.Text)
	case KindURL:
		err = json.Unmarshal(body, &v.URL)
	case KindCheckbox:
		err = json.Unmarshal(body, &v.Checkbox)
	case KindSelect, KindStatus:
		err = json.Unmarshal(body, &v.Option)
	case KindMultiSelect:
		err = json.Unmarshal(body, &v.Options)
	case KindFiles:
		err = json.Unmarshal(body, &v.Files)
	case KindDate:
		err = json.Unmarshal(body, &v.Date)
	}
	if err != nil {
		return fmt.Errorf("notion: decode %s property: %w", kind, err)
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
