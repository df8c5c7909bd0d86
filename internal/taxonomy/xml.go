package taxonomy

import (
	"encoding/xml"
	"fmt"
)

// availableSkills is the root element of the taxonomy XML export (spec §6:
// "a document with root <available_skills> containing <skill> children").
// encoding/xml is used deliberately here: no example repo in the pack wires
// a third-party XML library, and this is a fixed, simple schema where
// struct-tag marshaling is the idiomatic stdlib fit.
type availableSkills struct {
	XMLName xml.Name     `xml:"available_skills"`
	Skills  []skillEntry `xml:"skill"`
}

type skillEntry struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Location    string `xml:"location"`
}

// ExportXML enumerates every skill under Root and renders the discovery
// document consumer agents poll (spec §6).
func (m *Manager) ExportXML() ([]byte, error) {
	ids, err := m.ListSkills()
	if err != nil {
		return nil, err
	}

	doc := availableSkills{}
	for _, id := range ids {
		meta, _, err := m.LoadSkill(id)
		if err != nil {
			continue // enumeration failure policy: skip, don't abort (spec §4.1)
		}
		doc.Skills = append(doc.Skills, skillEntry{
			Name:        meta.Name,
			Description: meta.Description,
			Location:    id,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal taxonomy export: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
