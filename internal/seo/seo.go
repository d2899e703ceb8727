package seo

import "html/template"

type OpenGraph struct {
    Title       string
    Description string
    Image       string
    Type        string
}

type Meta struct {
    Title       string
    Description string
    Canonical   string
    OG          OpenGraph
    // JSONLD holds ld+json payloads built with JSON.
    JSONLD []template.JS
}

// WithSite returns m with the site name appended to the title.
func (m Meta) WithSite(site string) Meta {
    switch {
    case site == "":
    case m.Title == "":
        m.Title = site
    case m.Title != site:
        m.Title = m.Title + " | " + site
    }
    if m.OG.Title == "" {
        m.OG.Title = m.Title
    }
    if m.OG.Description == "" {
        m.OG.Description = m.Description
    }
    if m.OG.Type == "" {
        m.OG.Type = "website"
    }
    return m
}
