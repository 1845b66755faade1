package generator

import "strings"

const fenceMarker = "```"

// languageTags are the fence info strings treated as Pine Script.
var languageTags = map[string]bool{
	"pinescript": true,
	"pine":       true,
}

type fencedBlock struct {
	tag  string
	body string
}

// ExtractScript pulls the script out of free-form model output. A block
// tagged as Pine Script wins, then the first fenced block of any kind, then
// the whole text. The result is trimmed.
func ExtractScript(response string) string {
	blocks := scanFences(response)

	for _, b := range blocks {
		if languageTags[b.tag] {
			return strings.TrimSpace(b.body)
		}
	}
	if len(blocks) > 0 {
		return strings.TrimSpace(blocks[0].body)
	}
	return strings.TrimSpace(response)
}

// scanFences splits text into fenced blocks in order of appearance. A fence
// that is never closed runs to the end of the text.
func scanFences(text string) []fencedBlock {
	var blocks []fencedBlock
	rest := text

	for {
		open := strings.Index(rest, fenceMarker)
		if open < 0 {
			return blocks
		}
		rest = rest[open+len(fenceMarker):]

		nl := strings.IndexByte(rest, '\n')
		firstLine := rest
		if nl >= 0 {
			firstLine = rest[:nl]
		}

		// ```code``` on a single line has no info string
		if end := strings.Index(firstLine, fenceMarker); end >= 0 {
			blocks = append(blocks, fencedBlock{body: firstLine[:end]})
			rest = rest[end+len(fenceMarker):]
			continue
		}
		tag, isTag := infoTag(firstLine)
		if nl < 0 {
			if isTag {
				blocks = append(blocks, fencedBlock{tag: tag})
			} else {
				blocks = append(blocks, fencedBlock{body: firstLine})
			}
			return blocks
		}
		// Code written straight after the backticks stays in the body
		if isTag {
			rest = rest[nl+1:]
		}

		end := strings.Index(rest, fenceMarker)
		if end < 0 {
			blocks = append(blocks, fencedBlock{tag: tag, body: rest})
			return blocks
		}
		blocks = append(blocks, fencedBlock{tag: tag, body: rest[:end]})
		rest = rest[end+len(fenceMarker):]
	}
}

// infoTag reports whether line is a fence info string: empty, or a single
// word made of letters, digits, '_', '+' or '-'.
func infoTag(line string) (string, bool) {
	word := strings.TrimSpace(line)
	for _, r := range word {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '+', r == '-':
		default:
			return "", false
		}
	}
	return strings.ToLower(word), true
}
