package catalog

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/voyagen/channelvault/internal/models"
)

// GeneratorName is reported in the XMLTV root element.
const GeneratorName = "channelvault"

type xmltvDoc struct {
	XMLName   xml.Name       `xml:"tv"`
	Generator string         `xml:"generator-info-name,attr"`
	Channels  []xmltvChannel `xml:"channel"`
}

type xmltvChannel struct {
	ID          string     `xml:"id,attr"`
	DisplayName string     `xml:"display-name"`
	Icon        *xmltvIcon `xml:"icon,omitempty"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

// GenerateXMLTV renders a programme guide with one <channel> per entry. The
// guide id is the tvg-id when present, else the catalog id.
func GenerateXMLTV(channels []models.Channel) ([]byte, error) {
	doc := xmltvDoc{Generator: GeneratorName, Channels: make([]xmltvChannel, 0, len(channels))}
	for _, ch := range channels {
		id := ch.TvgID
		if id == "" {
			id = strconv.Itoa(ch.ID)
		}
		entry := xmltvChannel{ID: id, DisplayName: ch.Name}
		if ch.Logo != "" {
			entry.Icon = &xmltvIcon{Src: ch.Logo}
		}
		doc.Channels = append(doc.Channels, entry)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<!DOCTYPE tv SYSTEM "xmltv.dtd">` + "\n")
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
