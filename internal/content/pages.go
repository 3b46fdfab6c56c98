package content

import (
	"sort"
	"strings"
)

// FieldKind 决定编辑表单里用哪种输入控件。
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldURL      FieldKind = "url"
	FieldMarkdown FieldKind = "markdown"
	FieldIcon     FieldKind = "icon"
	FieldLines    FieldKind = "lines"
)

// Field is one editable scalar addressed by a dotted path.
type Field struct {
	Path  string
	Label string
	Kind  FieldKind
}

// ListDef describes an editable array inside a section.
// Path may contain "*" to cover every key of a nested object (curricula.*.features).
type ListDef struct {
	Path       string
	Label      string
	Aliases    []string
	Strings    bool
	Sequence   string
	ItemFields []Field
	Template   map[string]any
}

// NewItem returns the "Add item" template for a list that currently has size items.
func (l ListDef) NewItem(size int) map[string]any {
	if l.Strings {
		return map[string]any{"text": ""}
	}
	item := map[string]any(Clone(l.Template))
	if l.Sequence != "" {
		item[l.Sequence] = float64(size + 1)
	}
	return item
}

// SectionDef is the editor definition of one section_key.
type SectionDef struct {
	Key    string
	Title  string
	Badge  string
	Fields []Field
	Lists  []ListDef
}

// List finds the list definition matching a concrete path.
func (s SectionDef) List(path string) (ListDef, bool) {
	for _, list := range s.Lists {
		if MatchPath(list.Path, path) {
			return list, true
		}
	}
	return ListDef{}, false
}

// PageDef is the editor definition of one page slug.
type PageDef struct {
	Slug        string
	Label       string
	Description string
	Sections    []SectionDef
}

// Section looks up a section definition by key.
func (p PageDef) Section(key string) (SectionDef, bool) {
	for _, section := range p.Sections {
		if section.Key == key {
			return section, true
		}
	}
	return SectionDef{}, false
}

// SectionKeys lists the section keys in render order.
func (p PageDef) SectionKeys() []string {
	keys := make([]string, 0, len(p.Sections))
	for _, section := range p.Sections {
		keys = append(keys, section.Key)
	}
	return keys
}

// CorePageOrder is the fixed dashboard order of the pages that always exist.
var CorePageOrder = []string{"home", "header", "footer", "about", "academics", "admissions", "facilities", "contact", "apply"}

func text(path, label string) Field     { return Field{Path: path, Label: label, Kind: FieldText} }
func textarea(path, label string) Field { return Field{Path: path, Label: label, Kind: FieldTextarea} }
func url(path, label string) Field      { return Field{Path: path, Label: label, Kind: FieldURL} }
func markdown(path, label string) Field { return Field{Path: path, Label: label, Kind: FieldMarkdown} }
func icon(path, label string) Field     { return Field{Path: path, Label: label, Kind: FieldIcon} }

func heroSection(title string) SectionDef {
	return SectionDef{
		Key:   "hero",
		Title: title,
		Badge: "Banner",
		Fields: []Field{
			text("tagline", "Tagline"),
			text("title", "Title"),
			textarea("subtitle", "Subtitle"),
			url("image", "Background Image URL"),
		},
	}
}

var headingFields = []Field{text("tagline", "Tagline"), text("title", "Title")}

func withHeading(fields ...Field) []Field {
	out := make([]Field, 0, len(headingFields)+len(fields))
	out = append(out, headingFields...)
	return append(out, fields...)
}

var linkItemFields = []Field{text("label", "Label"), url("url", "URL")}

var pageDefs = []PageDef{
	{
		Slug:        "home",
		Label:       "Homepage",
		Description: "Manage Hero, Welcome, Facilities, and Playground sections.",
		Sections: []SectionDef{
			{
				Key:   "hero",
				Title: "Hero Section",
				Badge: "Top Fold",
				Fields: []Field{
					text("tagline", "Tagline"),
					text("title", "Title"),
					textarea("subtitle", "Subtitle"),
					text("button.text", "Button Text"),
					url("button.url", "Button Link"),
					url("image", "Hero Image URL"),
					text("badge.rank", "Badge Rank"),
					text("badge.text", "Badge Text"),
				},
			},
			{
				Key:   "founder_message",
				Title: "Principal's Message",
				Fields: withHeading(
					markdown("description", "Message"),
					textarea("quote", "Quote"),
					text("founder.name", "Name"),
					text("founder.role", "Role"),
					url("founder.image", "Portrait URL"),
					url("founder.signature", "Signature Image URL"),
					url("images.main", "Main Image URL"),
					url("images.secondary", "Secondary Image URL"),
					text("years_badge", "Years Badge"),
				),
			},
			{
				Key:    "features",
				Title:  "Key Features",
				Badge:  "3 Items",
				Fields: withHeading(text("button", "Button Text")),
				Lists: []ListDef{
					{
						Path:     "features",
						Label:    "Features",
						Sequence: "id",
						ItemFields: []Field{
							icon("icon", "Icon"),
							text("title", "Title"),
							textarea("description", "Description"),
							url("link", "Link"),
						},
						Template: map[string]any{"icon": "BookOpen", "title": "", "description": "", "link": "/"},
					},
					{
						Path:       "stats",
						Label:      "Stats",
						ItemFields: []Field{icon("icon", "Icon"), text("text", "Text")},
						Template:   map[string]any{"icon": "Award", "text": ""},
					},
				},
			},
			{
				Key:    "academies",
				Title:  "Academic Programs",
				Badge:  "5 Programs",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:     "academies",
					Label:    "Programs",
					Sequence: "id",
					ItemFields: []Field{
						text("name", "Name"),
						url("image", "Image URL"),
						textarea("description", "Description"),
					},
					Template: map[string]any{"name": "", "image": "", "description": ""},
				}},
			},
			{
				Key:    "news",
				Title:  "News & Events",
				Badge:  "Auto-fetch",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:     "items",
					Label:    "News Items",
					Sequence: "id",
					ItemFields: []Field{
						text("date", "Day"),
						text("month", "Month"),
						url("image", "Image URL"),
						text("title", "Title"),
						text("subtitle", "Subtitle"),
					},
					Template: map[string]any{"date": "", "month": "", "image": "", "title": "", "subtitle": ""},
				}},
			},
		},
	},
	{
		Slug:        "header",
		Label:       "Header",
		Description: "Configure global navigation menu and brand logo.",
		Sections: []SectionDef{
			{
				Key:    "brand",
				Title:  "Brand / Logo",
				Fields: []Field{text("logo_text", "Logo Text"), text("logo_accent", "Logo Accent")},
			},
			{
				Key:   "navigation",
				Title: "Navigation Menu",
				Lists: []ListDef{{
					Path:       "links",
					Label:      "Menu Links",
					ItemFields: []Field{text("name", "Name"), url("path", "Path")},
					Template:   map[string]any{"name": "", "path": "/"},
				}},
			},
		},
	},
	{
		Slug:        "footer",
		Label:       "Footer",
		Description: "Update footer links, contact info, and social media.",
		Sections: []SectionDef{
			{
				Key:   "brand",
				Title: "Brand",
				Fields: []Field{
					text("name", "Name"),
					text("accent", "Accent"),
					textarea("description", "Description"),
				},
				Lists: []ListDef{{
					Path:       "social_links",
					Label:      "Social Links",
					ItemFields: linkItemFields,
					Template:   map[string]any{"label": "", "url": "#"},
				}},
			},
			{
				Key:    "quick_links",
				Title:  "Quick Links",
				Fields: []Field{text("title", "Section Title")},
				Lists: []ListDef{{
					Path:       "links",
					Label:      "Links",
					ItemFields: linkItemFields,
					Template:   map[string]any{"label": "", "url": "/"},
				}},
			},
			{
				Key:    "programs",
				Title:  "Programs",
				Fields: []Field{text("title", "Section Title")},
				Lists: []ListDef{{
					Path:       "links",
					Label:      "Links",
					ItemFields: linkItemFields,
					Template:   map[string]any{"label": "", "url": "/"},
				}},
			},
			{
				Key:   "contact_info",
				Title: "Contact Info",
				Fields: []Field{
					text("title", "Section Title"),
					textarea("address", "Address"),
					text("phone", "Phone"),
					text("email", "Email"),
				},
			},
			{
				Key:    "copyright",
				Title:  "Copyright",
				Fields: []Field{text("text", "Copyright Text")},
				Lists: []ListDef{{
					Path:       "links",
					Label:      "Legal Links",
					ItemFields: linkItemFields,
					Template:   map[string]any{"label": "", "url": "/"},
				}},
			},
		},
	},
	{
		Slug:        "about",
		Label:       "About Page",
		Description: "Tell your school history, milestones, and leadership story.",
		Sections: []SectionDef{
			heroSection("Hero Banner"),
			{
				Key:   "mission_vision",
				Title: "Mission & Vision",
				Badge: "2 Cards",
				Fields: []Field{
					text("mission.title", "Mission Title"),
					markdown("mission.description", "Mission Description"),
					text("vision.title", "Vision Title"),
					markdown("vision.description", "Vision Description"),
				},
			},
			{
				Key:    "timeline",
				Title:  "History Timeline",
				Badge:  "Timeline",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:    "items",
					Label:   "Milestones",
					Aliases: []string{"events"},
					ItemFields: []Field{
						text("year", "Year"),
						text("title", "Title"),
						textarea("description", "Description"),
					},
					Template: map[string]any{"year": "", "title": "", "description": ""},
				}},
			},
			{
				Key:    "leadership",
				Title:  "Leadership Team",
				Badge:  "Team",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:       "members",
					Label:      "Members",
					ItemFields: []Field{text("name", "Name"), text("role", "Role"), url("image", "Photo URL")},
					Template:   map[string]any{"name": "", "role": "", "image": ""},
				}},
			},
			{
				Key:    "campus_gallery",
				Title:  "Life on Campus",
				Badge:  "Gallery",
				Fields: []Field{text("title", "Title")},
				Lists: []ListDef{{
					Path:       "images",
					Label:      "Images",
					ItemFields: []Field{text("label", "Label"), url("url", "Image URL")},
					Template:   map[string]any{"label": "", "url": ""},
				}},
			},
		},
	},
	{
		Slug:        "academics",
		Label:       "Academics",
		Description: "Detail your academic programs, grades, and calendar.",
		Sections: []SectionDef{
			heroSection("Hero Banner"),
			{
				Key:   "curriculum",
				Title: "Curriculum Structure",
				Badge: "3 Tabs",
				Fields: withHeading(
					text("curricula.primary.title", "Primary Title"),
					icon("curricula.primary.icon", "Primary Icon"),
					textarea("curricula.primary.description", "Primary Description"),
					url("curricula.primary.image", "Primary Image URL"),
					text("curricula.middle.title", "Middle Title"),
					icon("curricula.middle.icon", "Middle Icon"),
					textarea("curricula.middle.description", "Middle Description"),
					url("curricula.middle.image", "Middle Image URL"),
					text("curricula.senior.title", "Senior Title"),
					icon("curricula.senior.icon", "Senior Icon"),
					textarea("curricula.senior.description", "Senior Description"),
					url("curricula.senior.image", "Senior Image URL"),
				),
				Lists: []ListDef{{
					Path:       "curricula.*.features",
					Label:      "Features",
					Strings:    true,
					ItemFields: []Field{text("text", "Feature")},
				}},
			},
			{
				Key:   "methodology",
				Title: "Teaching Methodology",
				Badge: "Cards",
				Fields: withHeading(
					markdown("description", "Description"),
					url("image", "Image URL"),
				),
				Lists: []ListDef{{
					Path:       "cards",
					Label:      "Cards",
					ItemFields: []Field{text("title", "Title"), textarea("description", "Description")},
					Template:   map[string]any{"title": "", "description": ""},
				}},
			},
			{
				Key:    "departments",
				Title:  "Academic Departments",
				Badge:  "Cards",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:  "departments",
					Label: "Departments",
					ItemFields: []Field{
						icon("icon", "Icon"),
						url("customIcon", "Custom Icon URL"),
						text("name", "Name"),
						textarea("desc", "Description"),
					},
					Template: map[string]any{"icon": "Microscope", "customIcon": "", "name": "", "desc": ""},
				}},
			},
		},
	},
	{
		Slug:        "admissions",
		Label:       "Admissions",
		Description: "Guide parents through the admission process.",
		Sections: []SectionDef{
			heroSection("Hero Banner"),
			{
				Key:    "process",
				Title:  "Admission Process",
				Badge:  "4 Steps",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:       "steps",
					Label:      "Steps",
					Sequence:   "id",
					ItemFields: []Field{icon("icon", "Icon"), text("title", "Title"), textarea("desc", "Description")},
					Template:   map[string]any{"title": "", "desc": "", "icon": "FileText"},
				}},
			},
			{
				Key:    "requirements",
				Title:  "Required Documents",
				Badge:  "Checklist",
				Fields: withHeading(url("image", "Image URL")),
				Lists: []ListDef{{
					Path:       "requirements",
					Label:      "Requirements",
					ItemFields: []Field{icon("icon", "Icon"), text("text", "Text"), text("subtext", "Subtext")},
					Template:   map[string]any{"icon": "FileText", "text": "", "subtext": ""},
				}},
			},
			{
				Key:    "downloads",
				Title:  "Downloadable Forms",
				Badge:  "Forms",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:  "documents",
					Label: "Documents",
					ItemFields: []Field{
						text("title", "Title"),
						text("desc", "Description"),
						text("size", "Size"),
						url("url", "File URL"),
					},
					Template: map[string]any{"title": "", "desc": "", "size": "", "url": ""},
				}},
			},
			{
				Key:    "faq",
				Title:  "FAQs",
				Badge:  "Accordion",
				Fields: withHeading(textarea("intro", "Intro")),
				Lists: []ListDef{{
					Path:       "faqs",
					Label:      "Questions",
					ItemFields: []Field{text("question", "Question"), markdown("answer", "Answer")},
					Template:   map[string]any{"question": "", "answer": ""},
				}},
			},
			{
				Key:   "cta",
				Title: "Call to Action",
				Badge: "CTA Buttons",
				Fields: []Field{
					text("title", "Title"),
					textarea("subtitle", "Subtitle"),
					text("primary_button.text", "Primary Button Text"),
					url("primary_button.url", "Primary Button Link"),
					text("secondary_button.text", "Secondary Button Text"),
					url("secondary_button.url", "Secondary Button Link"),
				},
			},
		},
	},
	{
		Slug:        "facilities",
		Label:       "Facilities",
		Description: "Showcase campus facilities and infrastructure.",
		Sections: []SectionDef{
			heroSection("Hero Banner"),
			{
				Key:    "facility_grid",
				Title:  "Student Amenities",
				Badge:  "6 Facilities",
				Fields: withHeading(),
				Lists: []ListDef{{
					Path:  "facilities",
					Label: "Facilities",
					ItemFields: []Field{
						icon("icon", "Icon"),
						text("title", "Title"),
						textarea("desc", "Description"),
						url("image", "Image URL"),
					},
					Template: map[string]any{"icon": "Book", "title": "", "desc": "", "image": ""},
				}},
			},
			{
				Key:   "eco_initiatives",
				Title: "Eco Initiatives",
				Badge: "Sustainability",
				Fields: withHeading(
					text("title_highlight", "Title Highlight"),
					markdown("description", "Description"),
				),
				Lists: []ListDef{
					{
						Path:  "cards",
						Label: "Cards",
						ItemFields: []Field{
							icon("icon", "Icon"),
							text("title", "Title"),
							textarea("desc", "Description"),
							url("image", "Image URL"),
						},
						Template: map[string]any{"icon": "Leaf", "title": "", "desc": "", "image": ""},
					},
					{
						Path:       "stats",
						Label:      "Stats",
						ItemFields: []Field{text("value", "Value"), text("label", "Label"), text("color", "Color")},
						Template:   map[string]any{"value": "", "label": "", "color": ""},
					},
				},
			},
			{
				Key:   "digital_campus",
				Title: "Digital Campus",
				Badge: "Technology",
				Fields: withHeading(
					markdown("description", "Description"),
					url("image", "Image URL"),
				),
				Lists: []ListDef{{
					Path:       "features",
					Label:      "Features",
					ItemFields: []Field{icon("icon", "Icon"), text("title", "Title"), textarea("desc", "Description")},
					Template:   map[string]any{"icon": "Wifi", "title": "", "desc": ""},
				}},
			},
			{
				Key:   "safety_security",
				Title: "Safety & Security",
				Badge: "Safety",
				Fields: withHeading(
					markdown("description", "Description"),
					url("image", "Image URL"),
					text("badge.title", "Badge Title"),
					text("badge.subtitle", "Badge Subtitle"),
				),
				Lists: []ListDef{{
					Path:       "features",
					Label:      "Features",
					ItemFields: []Field{icon("icon", "Icon"), text("title", "Title"), textarea("desc", "Description")},
					Template:   map[string]any{"icon": "Video", "title": "", "desc": ""},
				}},
			},
		},
	},
	{
		Slug:        "contact",
		Label:       "Contact Us",
		Description: "Manage contact information and school timings.",
		Sections: []SectionDef{
			heroSection("Hero Banner"),
			{
				Key:   "info_cards",
				Title: "Contact Info Cards",
				Badge: "4 Cards",
				Lists: []ListDef{{
					Path:  "cards",
					Label: "Cards",
					ItemFields: []Field{
						icon("icon", "Icon"),
						text("title", "Title"),
						{Path: "lines", Label: "Lines", Kind: FieldLines},
					},
					Template: map[string]any{"icon": "Phone", "title": "", "lines": []any{"", ""}},
				}},
			},
			{
				Key:    "form_settings",
				Title:  "Form Settings",
				Badge:  "Subject Options",
				Fields: []Field{text("title", "Form Title")},
				Lists: []ListDef{{
					Path:       "subjects",
					Label:      "Subjects",
					ItemFields: []Field{text("value", "Value"), text("label", "Label")},
					Template:   map[string]any{"value": "", "label": ""},
				}},
			},
			{
				Key:    "map",
				Title:  "Google Map",
				Badge:  "Embed",
				Fields: []Field{url("embed_url", "Embed URL"), text("height", "Height")},
			},
		},
	},
	{
		Slug:        "apply",
		Label:       "Apply Page",
		Description: "Customize the online application form and messages.",
		Sections: []SectionDef{
			{
				Key:   "hero",
				Title: "Header Banner",
				Badge: "Banner",
				Fields: []Field{
					text("title", "Title"),
					textarea("subtitle", "Subtitle"),
					text("security_text", "Security Note"),
				},
			},
			{
				Key:    "student_section",
				Title:  "Student Details Section",
				Badge:  "Grade Options",
				Fields: []Field{text("title", "Title"), text("subtitle", "Subtitle")},
				Lists: []ListDef{{
					Path:       "grades",
					Label:      "Grades",
					ItemFields: []Field{text("value", "Value"), text("label", "Label")},
					Template:   map[string]any{"value": "", "label": ""},
				}},
			},
			{
				Key:    "parent_section",
				Title:  "Parent Details Section",
				Badge:  "Form Section",
				Fields: []Field{text("title", "Title"), text("subtitle", "Subtitle")},
			},
			{
				Key:    "additional_section",
				Title:  "Additional Info Section",
				Badge:  "Form Section",
				Fields: []Field{text("title", "Title"), text("subtitle", "Subtitle")},
			},
			{
				Key:    "submit_section",
				Title:  "Submit Section",
				Badge:  "Button",
				Fields: []Field{textarea("privacy_text", "Privacy Text"), text("button_text", "Button Text")},
			},
			{
				Key:   "success_message",
				Title: "Success Message",
				Badge: "Confirmation",
				Fields: []Field{
					text("title", "Title"),
					textarea("message", "Message"),
					text("email_notice", "Email Notice"),
					text("button_text", "Button Text"),
				},
			},
		},
	},
}

// Pages without a dedicated editor still get a friendly dashboard label.
var extraPageLabels = map[string][2]string{
	"activities":       {"Activities", "Highlight extracurricular activities and events."},
	"application-form": {"Application Form", "Customize admission form documents and messages."},
	"gallery":          {"Gallery", "Curate the school photo gallery and albums."},
}

// LookupPage returns the editor definition for a slug.
func LookupPage(slug string) (PageDef, bool) {
	for _, page := range pageDefs {
		if page.Slug == slug {
			return page, true
		}
	}
	return PageDef{}, false
}

// Describe returns a definition for any slug; unknown slugs get a humanised label and no sections.
func Describe(slug string) PageDef {
	if page, ok := LookupPage(slug); ok {
		return page
	}
	if extra, ok := extraPageLabels[slug]; ok {
		return PageDef{Slug: slug, Label: extra[0], Description: extra[1]}
	}
	return PageDef{Slug: slug, Label: HumanizeSlug(slug), Description: "Manage page content"}
}

// HumanizeSlug turns "application-form" into "Application form".
func HumanizeSlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}
	return strings.ToUpper(slug[:1]) + strings.ReplaceAll(slug[1:], "-", " ")
}

// ListsFor returns the list definitions of a section, nil when the page or section is unknown.
func ListsFor(slug, sectionKey string) []ListDef {
	page, ok := LookupPage(slug)
	if !ok {
		return nil
	}
	section, ok := page.Section(sectionKey)
	if !ok {
		return nil
	}
	return section.Lists
}

// IsCorePage reports whether slug is one of the always-present pages.
func IsCorePage(slug string) bool {
	return coreIndex(slug) >= 0
}

func coreIndex(slug string) int {
	for i, core := range CorePageOrder {
		if core == slug {
			return i
		}
	}
	return -1
}

// MergeCorePages adds core pages missing from the backend listing with zero
// sections, then orders core pages first and the rest alphabetically.
func MergeCorePages(summaries []PageSummary) []PageSummary {
	merged := make([]PageSummary, 0, len(summaries)+len(CorePageOrder))
	seen := make(map[string]struct{}, len(summaries))
	for _, summary := range summaries {
		slug := strings.TrimSpace(summary.PageSlug)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		summary.PageSlug = slug
		merged = append(merged, summary)
	}
	for _, slug := range CorePageOrder {
		if _, ok := seen[slug]; !ok {
			merged = append(merged, PageSummary{PageSlug: slug})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := coreIndex(merged[i].PageSlug), coreIndex(merged[j].PageSlug)
		switch {
		case a >= 0 && b >= 0:
			return a < b
		case a >= 0:
			return true
		case b >= 0:
			return false
		default:
			return merged[i].PageSlug < merged[j].PageSlug
		}
	})
	return merged
}
