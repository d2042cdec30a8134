package workspace

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/graph"
	"github.com/canvasflow/canvasflow/internal/label"
	"github.com/canvasflow/canvasflow/internal/node"
	"github.com/canvasflow/canvasflow/internal/types"
)

// Document is the canvas interchange format. The top-level keys and the
// per-record field names are stable and must not be renamed; external
// consumers key on them.
type Document struct {
	InputFiles  []FileRecord       `json:"inputFiles"`
	TextFiles   []FileRecord       `json:"textFiles"`
	Actions     []ActionRecord     `json:"actions"`
	Connections []ConnectionRecord `json:"connections"`
	OutputFiles []FileRecord       `json:"outputFiles"`
}

// FileRecord is one entry of an inputFiles, textFiles, or outputFiles array.
type FileRecord struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	DisplayName string   `json:"displayName,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	Producer    string   `json:"producer,omitempty"`
	Visible     bool     `json:"visible"`
}

// ActionRecord is one entry of the actions array: a configured node.
type ActionRecord struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Inputs     []string          `json:"inputs"`
	Outputs    []string          `json:"outputs"`
	Position   PositionRecord    `json:"position"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// PositionRecord is a node's canvas position in the interchange format.
type PositionRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ConnectionRecord is one entry of the connections array.
type ConnectionRecord struct {
	From     string `json:"from"`
	FromType string `json:"fromType"`
	To       string `json:"to"`
	ToType   string `json:"toType"`
	Label    string `json:"label"`
}

// Export serializes the whole canvas into the interchange document.
func (ws *Workspace) Export() ([]byte, error) {
	doc := Document{
		InputFiles:  fileRecords(ws.inputs.GetAll()),
		TextFiles:   fileRecords(ws.texts.GetAll()),
		Actions:     []ActionRecord{},
		Connections: []ConnectionRecord{},
		OutputFiles: fileRecords(ws.outputs.GetAll()),
	}

	for _, n := range ws.nodes.List() {
		rec := ActionRecord{
			ID:      n.ID.String(),
			Type:    n.Type.String(),
			Inputs:  append([]string{}, n.Inputs...),
			Outputs: append([]string{}, n.Outputs...),
			Position: PositionRecord{
				X: n.Position.X,
				Y: n.Position.Y,
			},
		}
		if n.Prompt != "" {
			rec.Parameters = map[string]string{"prompt": n.Prompt}
		}
		doc.Actions = append(doc.Actions, rec)
	}

	for _, c := range ws.conns.All() {
		doc.Connections = append(doc.Connections, ConnectionRecord{
			From:     c.FromID,
			FromType: c.FromKind.String(),
			To:       c.ToID,
			ToType:   c.ToKind.String(),
			Label:    c.Label,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, types.WrapError(types.CANVAS_ENCODE_FAILED, "cannot encode canvas document", err)
	}
	return data, nil
}

// Import replaces the canvas contents with the given interchange document.
// The current canvas is cleared first; a parse failure leaves it cleared.
func (ws *Workspace) Import(ctx context.Context, data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return types.WrapError(types.CANVAS_PARSE_FAILED, "cannot parse canvas document", err)
	}

	ws.Clear(ctx)

	for _, rec := range doc.InputFiles {
		if err := ws.inputs.Add(fileFromRecord(rec)); err != nil {
			return types.WrapError(types.CANVAS_IMPORT_CONFLICT, "duplicate input file "+rec.ID, err)
		}
		// Keep the sequence ahead of every restored letter.
		if idx := label.Index(label.Base(rec.ID)); idx >= 0 {
			ws.seq.Advance(idx)
		}
	}
	for _, rec := range doc.TextFiles {
		if err := ws.texts.Add(fileFromRecord(rec)); err != nil {
			return types.WrapError(types.CANVAS_IMPORT_CONFLICT, "duplicate text file "+rec.ID, err)
		}
	}
	for _, rec := range doc.OutputFiles {
		if err := ws.outputs.Add(fileFromRecord(rec)); err != nil {
			return types.WrapError(types.CANVAS_IMPORT_CONFLICT, "duplicate output file "+rec.ID, err)
		}
	}

	for _, rec := range doc.Actions {
		id, err := types.ParseID(rec.ID)
		if err != nil {
			return types.WrapError(types.CANVAS_PARSE_FAILED, "invalid action id "+rec.ID, err)
		}
		n := &node.Node{
			ID:       id,
			Type:     catalog.ToolType(rec.Type),
			Position: node.Position{X: rec.Position.X, Y: rec.Position.Y},
			Inputs:   append([]string{}, rec.Inputs...),
			Outputs:  append([]string{}, rec.Outputs...),
			Prompt:   rec.Parameters["prompt"],
		}
		if ws.nodes.Add(ctx, n) == nil {
			return types.NewErrorf(types.CANVAS_IMPORT_CONFLICT, "cannot restore action %s (%s)", rec.ID, rec.Type)
		}
	}

	for _, rec := range doc.Connections {
		err := ws.conns.Add(graph.Connection{
			FromKind: graph.EndpointKind(rec.FromType),
			FromID:   rec.From,
			ToKind:   graph.EndpointKind(rec.ToType),
			ToID:     rec.To,
			Label:    rec.Label,
		})
		if err != nil {
			return types.WrapError(types.CANVAS_IMPORT_CONFLICT, "duplicate connection for label "+rec.Label, err)
		}
	}

	ws.logger.Info("canvas imported",
		"inputs", len(doc.InputFiles),
		"texts", len(doc.TextFiles),
		"actions", len(doc.Actions),
		"connections", len(doc.Connections),
		"outputs", len(doc.OutputFiles),
	)
	return nil
}

func fileRecords(files []label.File) []FileRecord {
	recs := make([]FileRecord, 0, len(files))
	for _, f := range files {
		recs = append(recs, FileRecord{
			ID:          f.Label,
			Type:        strings.TrimPrefix(label.Ext(f.Label), "."),
			DisplayName: f.DisplayName,
			Sources:     f.Sources,
			Producer:    f.Producer,
			Visible:     f.Visible,
		})
	}
	return recs
}

func fileFromRecord(rec FileRecord) label.File {
	return label.File{
		Label:       rec.ID,
		DisplayName: rec.DisplayName,
		Sources:     rec.Sources,
		Producer:    rec.Producer,
		Visible:     rec.Visible,
	}
}
