package catalog

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/voyagen/channelvault/internal/models"
)

func TestGenerateXMLTV(t *testing.T) {
	channels := []models.Channel{
		{ID: 1, TvgID: "cnn.us", Name: "CNN", Logo: "http://logo/cnn.png"},
		{ID: 2, Name: "Tom & Jerry <Kids>"},
	}
	out, err := GenerateXMLTV(channels)
	if err != nil {
		t.Fatalf("GenerateXMLTV: %v", err)
	}
	doc := string(out)

	if !strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML header: %q", doc[:40])
	}
	for _, want := range []string{
		`<!DOCTYPE tv SYSTEM "xmltv.dtd">`,
		`<tv generator-info-name="channelvault">`,
		`<channel id="cnn.us">`,
		`<icon src="http://logo/cnn.png"></icon>`,
		`<channel id="2">`,
		`<display-name>Tom &amp; Jerry &lt;Kids&gt;</display-name>`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("output missing %q:\n%s", want, doc)
		}
	}
	if strings.Count(doc, "<icon") != 1 {
		t.Errorf("want exactly one icon:\n%s", doc)
	}

	var parsed xmltvDoc
	body := doc[strings.Index(doc, "<tv"):]
	if err := xml.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("output is not well-formed: %v", err)
	}
	if len(parsed.Channels) != 2 || parsed.Channels[1].DisplayName != "Tom & Jerry <Kids>" {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestGenerateXMLTV_empty(t *testing.T) {
	out, err := GenerateXMLTV(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `<tv generator-info-name="channelvault"></tv>`) {
		t.Errorf("out = %s", out)
	}
}
