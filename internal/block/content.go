package block

import "encoding/json"

// Content is the tagged-union payload of a block. The concrete type is
// determined by the block type; decoding never fails, a malformed
// payload yields the type's zero value.
type Content interface {
	isContent()
}

type HeadingContent struct {
	Text    string `json:"text"`
	Level   int    `json:"level"`
	Align   string `json:"align,omitempty"`
	Styling string `json:"styling,omitempty"`
}

type ParagraphContent struct {
	HTML  string `json:"html"`
	Align string `json:"align,omitempty"`
}

type ChoiceOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type MultipleChoiceContent struct {
	Question    string         `json:"question"`
	Options     []ChoiceOption `json:"options"`
	MultiAnswer bool           `json:"multiAnswer,omitempty"`
}

type FillBlankContent struct {
	// Text with gap markers; Answers holds the expected fill per gap in
	// order.
	Text    string   `json:"text"`
	Answers []string `json:"answers,omitempty"`
}

type FreeAnswerContent struct {
	Prompt string `json:"prompt"`
	Lines  int    `json:"lines,omitempty"`
}

type TableContent struct {
	HTML    string `json:"html"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Styling string `json:"styling,omitempty"`
}

type ImageContent struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Size    int    `json:"size,omitempty"`
	Align   string `json:"align,omitempty"`
}

// Spacer height bounds in pixels, enforced by the margin-drag
// controller when the spacer is resized.
const (
	MinSpacerHeight = 20
	MaxSpacerHeight = 1000
)

type SpacerContent struct {
	Height  int    `json:"height"`
	Pattern string `json:"pattern,omitempty"` // "", "dotted" or "lined"
}

type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// MinConnectPairs is the floor below which pair deletion is refused.
const MinConnectPairs = 2

type ConnectPairsContent struct {
	Pairs []Pair `json:"pairs"`
}

// RemovePair deletes the pair at index i. Deleting below the minimum
// pair count is a silent no-op; the return value reports whether the
// pair was removed.
func (c *ConnectPairsContent) RemovePair(i int) bool {
	if len(c.Pairs) <= MinConnectPairs {
		return false
	}
	if i < 0 || i >= len(c.Pairs) {
		return false
	}
	c.Pairs = append(c.Pairs[:i:i], c.Pairs[i+1:]...)
	return true
}

type Hotspot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

type ImageHotspotsContent struct {
	URL      string    `json:"url"`
	Hotspots []Hotspot `json:"hotspots"`
}

type VideoQuestion struct {
	AtSeconds int    `json:"atSeconds"`
	Question  string `json:"question"`
	Answer    string `json:"answer,omitempty"`
}

type VideoQuizContent struct {
	VideoURL  string          `json:"videoUrl"`
	Questions []VideoQuestion `json:"questions"`
}

type QRCodeContent struct {
	URL  string `json:"url"`
	Size int    `json:"size,omitempty"`
}

type HeaderFooterContent struct {
	HeaderText      string `json:"headerText,omitempty"`
	FooterText      string `json:"footerText,omitempty"`
	ShowPageNumbers bool   `json:"showPageNumbers,omitempty"`
}

type ExamplesContent struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

func (HeadingContent) isContent()        {}
func (ParagraphContent) isContent()      {}
func (MultipleChoiceContent) isContent() {}
func (FillBlankContent) isContent()      {}
func (FreeAnswerContent) isContent()     {}
func (TableContent) isContent()          {}
func (ImageContent) isContent()          {}
func (SpacerContent) isContent()         {}
func (ConnectPairsContent) isContent()   {}
func (ImageHotspotsContent) isContent()  {}
func (VideoQuizContent) isContent()      {}
func (QRCodeContent) isContent()         {}
func (HeaderFooterContent) isContent()   {}
func (ExamplesContent) isContent()       {}

func zeroContent(t Type) Content {
	switch t {
	case TypeHeading:
		return HeadingContent{Level: 1}
	case TypeParagraph:
		return ParagraphContent{}
	case TypeMultipleChoice:
		return MultipleChoiceContent{}
	case TypeFillBlank:
		return FillBlankContent{}
	case TypeFreeAnswer:
		return FreeAnswerContent{Lines: 3}
	case TypeTable:
		return TableContent{Rows: 2, Columns: 2}
	case TypeImage:
		return ImageContent{}
	case TypeSpacer:
		return SpacerContent{Height: 60}
	case TypeConnectPairs:
		return ConnectPairsContent{Pairs: []Pair{{}, {}}}
	case TypeImageHotspots:
		return ImageHotspotsContent{}
	case TypeVideoQuiz:
		return VideoQuizContent{}
	case TypeQRCode:
		return QRCodeContent{Size: 128}
	case TypeHeaderFooter:
		return HeaderFooterContent{ShowPageNumbers: true}
	case TypeExamples:
		return ExamplesContent{}
	default:
		return ParagraphContent{}
	}
}

// decodeAs unmarshals raw into T; any failure yields fallback so a
// block with damaged content still loads and renders a placeholder.
func decodeAs[T Content](raw json.RawMessage, fallback Content) Content {
	var c T
	if err := json.Unmarshal(raw, &c); err != nil {
		return fallback
	}
	return c
}

func decodeContent(t Type, raw json.RawMessage) Content {
	if len(raw) == 0 {
		return zeroContent(t)
	}
	fallback := zeroContent(t)
	switch t {
	case TypeHeading:
		return decodeAs[HeadingContent](raw, fallback)
	case TypeParagraph:
		return decodeAs[ParagraphContent](raw, fallback)
	case TypeMultipleChoice:
		return decodeAs[MultipleChoiceContent](raw, fallback)
	case TypeFillBlank:
		return decodeAs[FillBlankContent](raw, fallback)
	case TypeFreeAnswer:
		return decodeAs[FreeAnswerContent](raw, fallback)
	case TypeTable:
		return decodeAs[TableContent](raw, fallback)
	case TypeImage:
		return decodeAs[ImageContent](raw, fallback)
	case TypeSpacer:
		return decodeAs[SpacerContent](raw, fallback)
	case TypeConnectPairs:
		return decodeAs[ConnectPairsContent](raw, fallback)
	case TypeImageHotspots:
		return decodeAs[ImageHotspotsContent](raw, fallback)
	case TypeVideoQuiz:
		return decodeAs[VideoQuizContent](raw, fallback)
	case TypeQRCode:
		return decodeAs[QRCodeContent](raw, fallback)
	case TypeHeaderFooter:
		return decodeAs[HeaderFooterContent](raw, fallback)
	case TypeExamples:
		return decodeAs[ExamplesContent](raw, fallback)
	default:
		return fallback
	}
}

// cloneContent deep-copies a payload, covering the slice-bearing types
// so a duplicate never aliases its source.
func cloneContent(c Content) Content {
	switch v := c.(type) {
	case MultipleChoiceContent:
		v.Options = append([]ChoiceOption(nil), v.Options...)
		return v
	case FillBlankContent:
		v.Answers = append([]string(nil), v.Answers...)
		return v
	case ConnectPairsContent:
		v.Pairs = append([]Pair(nil), v.Pairs...)
		return v
	case ImageHotspotsContent:
		v.Hotspots = append([]Hotspot(nil), v.Hotspots...)
		return v
	case VideoQuizContent:
		v.Questions = append([]VideoQuestion(nil), v.Questions...)
		return v
	case ExamplesContent:
		v.Items = append([]string(nil), v.Items...)
		return v
	default:
		return c
	}
}
