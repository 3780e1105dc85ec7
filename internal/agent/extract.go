package agent

import (
	"encoding/json"
	"strings"
)

// maxScanBytes bounds the total bracket matching work per completion, so
// long prose full of brackets costs at most this many byte visits.
const maxScanBytes = 1 << 20

// rawCommand is the wire shape of one tool call.
type rawCommand struct {
	Action     string          `json:"action"`
	Parameters json.RawMessage `json:"parameters"`
}

// Extract recovers tool calls from a model completion. It strips markdown
// fences, takes the first balanced JSON object or array that parses and holds
// at least one tool call, and decodes one Command per well-formed element.
// Elements with a missing or unknown action, or parameters of the wrong
// shape, are dropped. found is false when nothing usable was recovered; the
// text is then conversation. Extract never panics.
func Extract(raw string) (cmds []Command, found bool) {
	defer func() {
		if recover() != nil {
			cmds, found = nil, false
		}
	}()

	for _, payload := range jsonCandidates(stripFences(raw)) {
		if cmds = decodePayload(payload); len(cmds) > 0 {
			return cmds, true
		}
	}
	return nil, false
}

// decodePayload decodes a JSON object or array of tool calls.
func decodePayload(payload string) []Command {
	var elems []json.RawMessage
	if payload[0] == '[' {
		if err := json.Unmarshal([]byte(payload), &elems); err != nil {
			return nil
		}
	} else {
		elems = []json.RawMessage{json.RawMessage(payload)}
	}

	var cmds []Command
	for _, el := range elems {
		var rc rawCommand
		if err := json.Unmarshal(el, &rc); err != nil {
			continue
		}
		if rc.Action == "" || rc.Action == "none" {
			continue
		}
		if cmd, ok := decodeCommand(rc.Action, rc.Parameters); ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// stripFences removes ``` and ```json markers, keeping their contents.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// jsonCandidates returns, in order of appearance, the substrings starting at
// '{' or '[' whose balanced extent is valid JSON. A valid candidate's interior
// is skipped. So is the interior of a balanced array that does not parse: its
// elements belong to a batch, and running one of them alone would drop the
// rest. An array that fails to match is skipped up to where matching stopped
// for the same reason.
func jsonCandidates(s string) []string {
	var out []string
	budget := maxScanBytes
	for i := 0; i < len(s) && budget > 0; i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end, ok := matchBracket(s, i)
		budget -= end - i + 1
		if !ok {
			if s[i] == '[' {
				i = end
			}
			continue
		}
		cand := s[i : end+1]
		if json.Valid([]byte(cand)) {
			out = append(out, cand)
			i = end
		} else if s[i] == '[' {
			i = end
		}
	}
	return out
}

// matchBracket returns the index closing the bracket at s[start]. It tracks
// nesting of both bracket kinds and ignores brackets inside JSON strings. On
// failure the index is where matching stopped.
func matchBracket(s string, start int) (int, bool) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return i, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return len(s) - 1, false
}
