package reddit

import (
	"encoding/json"
	"testing"
)

func TestListing_MalformedOptionalFields(t *testing.T) {
	raw := `{"data":{"after":"t3_b","children":[
		{"kind":"t3","data":{"id":"a","title":"A","preview":"not an object","score":3}},
		{"kind":"t3","data":{"id":"b","title":"B","gallery_data":{"items":[{"media_id":"m1"}]},"media_metadata":{"m1":{"status":"valid","p":[{"x":108,"y":80,"u":"https://preview.redd.it/m1.jpg"}],"s":{"x":1200,"y":900,"u":"https://preview.redd.it/m1.jpg?s=1"}}},"is_gallery":true}}
	]}}`

	var l Listing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		t.Fatalf("listing should decode despite a malformed preview: %v", err)
	}
	if len(l.Data.Children) != 2 || l.Data.After != "t3_b" {
		t.Fatalf("listing = %+v", l)
	}

	a := l.Data.Children[0].Data
	if _, err := a.DecodePreview(); err == nil {
		t.Error("malformed preview should fail to decode")
	}
	if _, _, err := a.DecodeGallery(); err == nil {
		t.Error("absent gallery should fail to decode")
	}

	b := l.Data.Children[1].Data
	data, meta, err := b.DecodeGallery()
	if err != nil {
		t.Fatalf("decode gallery: %v", err)
	}
	if len(data.Items) != 1 || data.Items[0].MediaID != "m1" {
		t.Errorf("gallery items = %+v", data.Items)
	}
	if m := meta["m1"]; m.S == nil || len(m.P) != 1 || m.P[0].X != 108 {
		t.Errorf("metadata = %+v", m)
	}
}

func TestDecodePreview_Null(t *testing.T) {
	p := Post{Preview: json.RawMessage("null")}
	if _, err := p.DecodePreview(); err == nil {
		t.Error("null preview should be treated as absent")
	}
}
