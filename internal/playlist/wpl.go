package playlist

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/KDE/macaw-movies/internal/database"
)

const generator = "Macaw-Movies"

// WPL structure based on Windows Media Player playlist format
type WPL struct {
	XMLName xml.Name `xml:"smil"`
	Head    WPLHead  `xml:"head"`
	Body    WPLBody  `xml:"body"`
}

type WPLHead struct {
	Meta  []WPLMeta `xml:"meta"`
	Title string    `xml:"title"`
}

type WPLMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type WPLBody struct {
	Seq WPLSeq `xml:"seq"`
}

type WPLSeq struct {
	Media []WPLMedia `xml:"media"`
}

type WPLMedia struct {
	Src string `xml:"src,attr"`
}

// Playlist is a named, ordered list of media files.
type Playlist struct {
	Name  string
	Files []string
}

// FromLibrary lists the files of a library playlist's movies in order,
// leaving out movies whose file cannot be located.
func FromLibrary(p *database.Playlist) Playlist {
	out := Playlist{Name: p.Name}
	for _, m := range p.Movies {
		if m.AbsolutePath == "" {
			continue
		}
		out.Files = append(out.Files, m.AbsolutePath)
	}
	return out
}

// WriteWPL encodes p as a WPL document. Files are written as given.
func WriteWPL(w io.Writer, p Playlist) error {
	doc := WPL{
		Head: WPLHead{
			Meta: []WPLMeta{
				{Name: "Generator", Content: generator},
				{Name: "ItemCount", Content: strconv.Itoa(len(p.Files))},
			},
			Title: p.Name,
		},
	}
	for _, f := range p.Files {
		doc.Body.Seq.Media = append(doc.Body.Seq.Media, WPLMedia{Src: f})
	}

	if _, err := io.WriteString(w, "<?wpl version=\"1.0\"?>\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode playlist %q: %w", p.Name, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadWPL decodes a WPL document. Windows separators in media sources are
// turned into forward slashes. An untitled playlist is named after
// fallbackName with its extension removed.
func ReadWPL(r io.Reader, fallbackName string) (*Playlist, error) {
	var doc WPL
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse playlist: %w", err)
	}

	p := &Playlist{Name: strings.TrimSpace(doc.Head.Title)}
	if p.Name == "" {
		base := path.Base(strings.ReplaceAll(fallbackName, "\\", "/"))
		p.Name = strings.TrimSuffix(base, path.Ext(base))
	}
	for _, media := range doc.Body.Seq.Media {
		if media.Src == "" {
			continue
		}
		p.Files = append(p.Files, strings.ReplaceAll(media.Src, "\\", "/"))
	}
	return p, nil
}
