package automator

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"go-hopeforjob-automation/internal/ai"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// control is one form element plus what we could learn about it.
type control struct {
	el       browser.Element
	name     string
	label    string
	kind     models.FieldType
	options  []string
	required bool
	key      string // normalized name + label, used for heuristics
}

// FieldFiller decides and applies values for the controls of one apply step.
// Order: profile heuristics, cached answers for this job, then the resolver.
type FieldFiller struct {
	base        *Base
	job         *models.JobListing
	profile     *models.UserProfile
	coverLetter string
	cache       map[string]models.ApplicationFormField
	cacheLoaded bool
}

func NewFieldFiller(base *Base, job *models.JobListing, profile *models.UserProfile, coverLetter string) *FieldFiller {
	return &FieldFiller{base: base, job: job, profile: profile, coverLetter: coverLetter}
}

func (f *FieldFiller) CoverLetter() string {
	return f.coverLetter
}

// FillStep fills every empty, visible control and returns the answers applied
// (cover letter excluded), keyed by field name.
func (f *FieldFiller) FillStep(ctx context.Context, elements []browser.Element, j *Journal) map[string]string {
	applied := make(map[string]string)
	var pending []control

	for _, el := range elements {
		c, ok := describe(el)
		if !ok {
			continue
		}
		value, source := f.resolveLocal(ctx, c)
		if value == "" {
			pending = append(pending, c)
			continue
		}
		if f.apply(ctx, c, value) {
			j.Add("filled %q from %s", c.name, source)
			if source != "cover letter" {
				applied[c.name] = value
			}
			f.remember(ctx, c, value, 1)
		}
	}

	if len(pending) == 0 || f.base.Deps.Resolver == nil {
		for _, c := range pending {
			if c.required {
				j.Add("no answer for required field %q", c.name)
			}
		}
		return applied
	}

	descs := make([]ai.FieldDescriptor, 0, len(pending))
	for _, c := range pending {
		descs = append(descs, ai.FieldDescriptor{Name: c.name, Label: c.label, Type: string(c.kind), Options: c.options, Required: c.required})
	}
	suggestions, err := f.base.Deps.Resolver.Suggest(ctx, f.job, f.profile, descs)
	if err != nil {
		j.Add("field resolver unavailable: %v", err)
	}
	for _, c := range pending {
		s, ok := suggestions[c.name]
		if !ok || s.Value == "" {
			if c.required {
				j.Add("no answer for required field %q", c.name)
			}
			f.remember(ctx, c, "", 0)
			continue
		}
		if f.apply(ctx, c, s.Value) {
			j.Add("filled %q from resolver (confidence %.2f)", c.name, s.Confidence)
			applied[c.name] = s.Value
		}
		f.remember(ctx, c, s.Value, s.Confidence)
	}
	return applied
}

func (f *FieldFiller) resolveLocal(ctx context.Context, c control) (string, string) {
	if v := f.heuristic(c); v != "" {
		if v == f.coverLetter {
			return v, "cover letter"
		}
		return v, "profile"
	}
	if cached, ok := f.cached(ctx)[c.name]; ok && cached.SuggestedAnswer != "" {
		return cached.SuggestedAnswer, "cache"
	}
	return "", ""
}

func (f *FieldFiller) heuristic(c control) string {
	p := f.profile
	if p == nil || !freeText(c.kind) {
		return ""
	}
	k := c.key
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(k, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("cover"):
		return f.coverLetter
	case has("phone", "mobile"):
		return p.Phone
	case has("email"):
		return p.Email
	case has("first name", "firstname", "given name", "first_name"):
		if p.FirstName != "" {
			return p.FirstName
		}
		return firstWord(p.DisplayName())
	case has("last name", "lastname", "surname", "family name", "last_name"):
		if p.LastName != "" {
			return p.LastName
		}
		return lastWord(p.DisplayName())
	case has("full name", "fullname") || k == "name":
		return p.DisplayName()
	case has("linkedin"):
		return p.LinkedInURL
	case has("website", "portfolio"):
		return p.WebsiteURL
	case has("years") && has("experience"):
		if p.YearsOfExperience > 0 {
			return strconv.Itoa(p.YearsOfExperience)
		}
	case has("city", "location"):
		return p.Location
	case has("headline", "current title", "current position"):
		return p.CurrentPosition
	}
	return ""
}

// freeText reports whether a profile string can be typed into the control.
// Choice controls only take answers from the cache or the resolver.
func freeText(kind models.FieldType) bool {
	switch kind {
	case models.FieldText, models.FieldTextarea, models.FieldNumber, models.FieldDate:
		return true
	}
	return false
}

func (f *FieldFiller) cached(ctx context.Context) map[string]models.ApplicationFormField {
	if f.cacheLoaded {
		return f.cache
	}
	f.cacheLoaded = true
	f.cache = make(map[string]models.ApplicationFormField)
	if f.job == nil || f.job.ID == "" {
		return f.cache
	}
	fields, err := f.base.Deps.Store.GetFormFields(ctx, f.job.ID)
	if err != nil {
		f.base.Log().WithError(err).Warn("⚠️ Could not load cached form fields")
		return f.cache
	}
	for _, field := range fields {
		f.cache[field.FieldName] = field
	}
	return f.cache
}

func (f *FieldFiller) remember(ctx context.Context, c control, answer string, confidence float64) {
	if f.job == nil || f.job.ID == "" || (c.kind == models.FieldTextarea && answer == f.coverLetter) {
		return
	}
	field := &models.ApplicationFormField{
		JobID:           f.job.ID,
		FieldName:       c.name,
		FieldLabel:      c.label,
		FieldType:       c.kind,
		Required:        c.required,
		Selector:        selectorFor(c),
		Options:         c.options,
		SuggestedAnswer: answer,
		Confidence:      confidence,
	}
	if err := f.base.Deps.Store.UpsertFormField(ctx, field); err != nil {
		f.base.Log().WithError(err).Warn("⚠️ Could not cache form field")
		return
	}
	if f.cache != nil {
		f.cache[c.name] = *field
	}
}

func (f *FieldFiller) apply(ctx context.Context, c control, value string) bool {
	switch c.kind {
	case models.FieldSelect:
		if err := c.el.SelectOption(value); err != nil {
			f.base.Log().WithField("field", c.name).WithError(err).Warn("⚠️ Select failed")
			return false
		}
		return true
	case models.FieldCheckbox:
		checked := isTruthy(value)
		if err := c.el.SetChecked(checked); err != nil {
			f.base.Log().WithField("field", c.name).WithError(err).Warn("⚠️ Check failed")
			return false
		}
		return true
	case models.FieldRadio:
		own, _ := c.el.Attribute("value")
		if !strings.EqualFold(own, value) {
			return false
		}
		return c.el.SetChecked(true) == nil
	default:
		return f.base.FillElement(ctx, c.el, c.name, value)
	}
}

// describe reads a control's identity. Hidden, disabled, already answered
// and non-fillable controls are skipped.
func describe(el browser.Element) (control, bool) {
	if visible, err := el.IsVisible(); err != nil || !visible {
		return control{}, false
	}
	if disabled, err := el.IsDisabled(); err != nil || disabled {
		return control{}, false
	}

	tag, _ := el.TagName()
	typ, _ := el.Attribute("type")
	typ = strings.ToLower(typ)

	c := control{el: el}
	switch {
	case tag == "select":
		c.kind = models.FieldSelect
		c.options = optionTexts(el)
	case tag == "textarea":
		c.kind = models.FieldTextarea
	case typ == "hidden", typ == "submit", typ == "button", typ == "file", typ == "image", typ == "reset":
		return control{}, false
	case typ == "checkbox":
		c.kind = models.FieldCheckbox
	case typ == "radio":
		c.kind = models.FieldRadio
	case typ == "date":
		c.kind = models.FieldDate
	case typ == "number":
		c.kind = models.FieldNumber
	default:
		c.kind = models.FieldText
	}

	if c.kind != models.FieldCheckbox && c.kind != models.FieldRadio {
		v, _ := el.InputValue()
		v = strings.TrimSpace(v)
		placeholder := c.kind == models.FieldSelect && strings.HasPrefix(strings.ToLower(v), "select")
		if v != "" && !placeholder {
			return control{}, false
		}
	}

	name, _ := el.Attribute("name")
	id, _ := el.Attribute("id")
	label, _ := el.Attribute("aria-label")
	if label == "" {
		label, _ = el.Attribute("placeholder")
	}
	if name == "" {
		name = id
	}
	if name == "" {
		name = label
	}
	if name == "" {
		return control{}, false
	}
	req, _ := el.Attribute("required")
	ariaReq, _ := el.Attribute("aria-required")

	c.name = name
	c.label = label
	c.required = req != "" || ariaReq == "true"
	c.key = normalizeText(strings.NewReplacer("_", " ", "-", " ").Replace(name) + " " + label)
	if strings.TrimSpace(normalizeText(label)) == "name" || normalizeText(name) == "name" {
		c.key = "name"
	}
	return c, true
}

func optionTexts(el browser.Element) []string {
	opts, err := el.QueryAll("option")
	if err != nil {
		return nil
	}
	var out []string
	for _, o := range opts {
		text, err := o.InnerText()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(strings.ToLower(text), "select") {
			continue
		}
		out = append(out, text)
	}
	return out
}

func selectorFor(c control) string {
	return `[name="` + c.name + `"]`
}

// normalizeText lowercases and strips accents so "Téléphone" matches "telephone".
func normalizeText(str string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, str)
	return strings.ToLower(strings.TrimSpace(result))
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "on", "checked", "y":
		return true
	}
	return false
}

func firstWord(s string) string {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func lastWord(s string) string {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}
