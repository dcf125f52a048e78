package export

import (
	"fmt"
	"html/template"
	"strings"

	"lectio/api/internal/block"
)

// BlockHTML renders one block to its inner HTML. number is the activity
// number for activity blocks, 0 otherwise. Rich-text payloads (the
// paragraph and table editors emit sanitized HTML) pass through
// unescaped; every other field is escaped.
func BlockHTML(b block.Block, number int, showAnswers bool) template.HTML {
	var sb strings.Builder

	if b.Image != nil && b.Image.Position == block.ImageBefore {
		writeAttachedImage(&sb, b.Image)
	}

	beside := b.Image != nil && (b.Image.Position == block.ImageBesideLeft || b.Image.Position == block.ImageBesideRight)
	if beside {
		sb.WriteString(`<div class="with-image ` + string(b.Image.Position) + `">`)
		if b.Image.Position == block.ImageBesideLeft {
			writeAttachedImage(&sb, b.Image)
		}
		sb.WriteString(`<div class="beside-body">`)
	}

	writeBlockBody(&sb, b, number, showAnswers)

	if beside {
		sb.WriteString(`</div>`)
		if b.Image.Position == block.ImageBesideRight {
			writeAttachedImage(&sb, b.Image)
		}
		sb.WriteString(`</div>`)
	}

	return template.HTML(sb.String())
}

func writeBlockBody(sb *strings.Builder, b block.Block, number int, showAnswers bool) {
	switch c := b.Content.(type) {
	case block.HeadingContent:
		level := c.Level
		if level < 1 || level > 3 {
			level = 1
		}
		fmt.Fprintf(sb, `<h%d class="heading%s">%s</h%d>`, level, alignClass(c.Align), esc(c.Text), level)

	case block.ParagraphContent:
		fmt.Fprintf(sb, `<div class="paragraph%s">%s</div>`, alignClass(c.Align), c.HTML)

	case block.MultipleChoiceContent:
		writeActivityHeader(sb, number, c.Question)
		sb.WriteString(`<ul class="choices">`)
		for _, opt := range c.Options {
			marker := "☐"
			if !c.MultiAnswer {
				marker = "◯"
			}
			if showAnswers && opt.Correct {
				marker = "☑"
				if !c.MultiAnswer {
					marker = "⦿"
				}
			}
			fmt.Fprintf(sb, `<li><span class="marker">%s</span> %s</li>`, marker, esc(opt.Text))
		}
		sb.WriteString(`</ul>`)

	case block.FillBlankContent:
		writeActivityHeader(sb, number, "")
		text := esc(c.Text)
		if showAnswers {
			for _, answer := range c.Answers {
				text = strings.Replace(text, "___", `<span class="blank filled">`+esc(answer)+`</span>`, 1)
			}
		}
		text = strings.ReplaceAll(text, "___", `<span class="blank"></span>`)
		fmt.Fprintf(sb, `<div class="fill-blank">%s</div>`, text)

	case block.FreeAnswerContent:
		writeActivityHeader(sb, number, c.Prompt)
		lines := c.Lines
		if lines <= 0 {
			lines = 3
		}
		sb.WriteString(`<div class="answer-lines">`)
		for i := 0; i < lines; i++ {
			sb.WriteString(`<div class="answer-line"></div>`)
		}
		sb.WriteString(`</div>`)

	case block.TableContent:
		fmt.Fprintf(sb, `<div class="table%s">%s</div>`, stylingClass(c.Styling), c.HTML)

	case block.ImageContent:
		style := ""
		if c.Size > 0 {
			style = fmt.Sprintf(` style="width:%d%%"`, c.Size)
		}
		fmt.Fprintf(sb, `<figure class="image%s"><img src="%s" alt="%s"%s>`, alignClass(c.Align), esc(c.URL), esc(c.Caption), style)
		if c.Caption != "" {
			fmt.Fprintf(sb, `<figcaption>%s</figcaption>`, esc(c.Caption))
		}
		sb.WriteString(`</figure>`)

	case block.SpacerContent:
		height := c.Height
		if height < block.MinSpacerHeight {
			height = block.MinSpacerHeight
		}
		fmt.Fprintf(sb, `<div class="spacer %s" style="height:%dpx"></div>`, esc(c.Pattern), height)

	case block.ConnectPairsContent:
		writeActivityHeader(sb, number, "")
		sb.WriteString(`<table class="connect-pairs">`)
		for _, p := range c.Pairs {
			fmt.Fprintf(sb, `<tr><td>%s</td><td class="dot">●</td><td class="dot">●</td><td>%s</td></tr>`, esc(p.Left), esc(p.Right))
		}
		sb.WriteString(`</table>`)

	case block.ImageHotspotsContent:
		writeActivityHeader(sb, number, "")
		fmt.Fprintf(sb, `<div class="hotspots"><img src="%s" alt="">`, esc(c.URL))
		for i, h := range c.Hotspots {
			fmt.Fprintf(sb, `<span class="hotspot" style="left:%.1f%%;top:%.1f%%">%d</span>`, h.X, h.Y, i+1)
		}
		sb.WriteString(`</div><ol class="hotspot-labels">`)
		for _, h := range c.Hotspots {
			if showAnswers {
				fmt.Fprintf(sb, `<li>%s</li>`, esc(h.Label))
			} else {
				sb.WriteString(`<li><span class="blank"></span></li>`)
			}
		}
		sb.WriteString(`</ol>`)

	case block.VideoQuizContent:
		writeActivityHeader(sb, number, "")
		fmt.Fprintf(sb, `<div class="video-quiz"><div class="video-link">%s</div><ol>`, esc(c.VideoURL))
		for _, q := range c.Questions {
			fmt.Fprintf(sb, `<li><span class="timestamp">%s</span> %s`, formatTimestamp(q.AtSeconds), esc(q.Question))
			if showAnswers && q.Answer != "" {
				fmt.Fprintf(sb, ` <span class="answer">%s</span>`, esc(q.Answer))
			}
			sb.WriteString(`</li>`)
		}
		sb.WriteString(`</ol></div>`)

	case block.QRCodeContent:
		size := c.Size
		if size <= 0 {
			size = 128
		}
		fmt.Fprintf(sb, `<div class="qr-code" data-url="%s" style="width:%dpx;height:%dpx"></div>`, esc(c.URL), size, size)

	case block.HeaderFooterContent:
		// Rendered as page chrome, not in the block flow.

	case block.ExamplesContent:
		sb.WriteString(`<div class="examples">`)
		if c.Title != "" {
			fmt.Fprintf(sb, `<div class="examples-title">%s</div>`, esc(c.Title))
		}
		sb.WriteString(`<ul>`)
		for _, item := range c.Items {
			fmt.Fprintf(sb, `<li>%s</li>`, esc(item))
		}
		sb.WriteString(`</ul></div>`)

	default:
		sb.WriteString(`<div class="placeholder"></div>`)
	}
}

func writeActivityHeader(sb *strings.Builder, number int, prompt string) {
	if number <= 0 && prompt == "" {
		return
	}
	sb.WriteString(`<div class="activity-header">`)
	if number > 0 {
		fmt.Fprintf(sb, `<span class="activity-number">%d.</span> `, number)
	}
	if prompt != "" {
		sb.WriteString(esc(prompt))
	}
	sb.WriteString(`</div>`)
}

func writeAttachedImage(sb *strings.Builder, img *block.ImageAttachment) {
	style := ""
	if img.Size > 0 {
		style = fmt.Sprintf(` style="width:%dpx"`, img.Size)
	}
	fmt.Fprintf(sb, `<img class="attached" src="%s" alt=""%s>`, esc(img.URL), style)
}

func alignClass(align string) string {
	switch align {
	case "center", "right", "justify":
		return " align-" + align
	default:
		return ""
	}
}

func stylingClass(styling string) string {
	if styling == "" {
		return ""
	}
	return " style-" + template.HTMLEscapeString(styling)
}

func formatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func esc(s string) string {
	return template.HTMLEscapeString(s)
}
