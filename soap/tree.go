package soap

// TreeExtractor parses the response body as XML and returns the text of the
// first ProcessTextResult element. Entities are decoded once by the parser,
// where MarkerExtractor decodes &amp; before &lt; and &gt; across the whole
// response.
type TreeExtractor struct{}

func (TreeExtractor) Extract(raw string) (string, error) {
	_, body := splitHead(raw)
	doc, err := parseBody(body)
	if err != nil {
		return "", malformed(raw, "invalid xml: "+err.Error())
	}
	el := findElement(doc, "ProcessTextResult")
	if el == nil {
		return "", malformed(raw, "no ProcessTextResult element")
	}
	return el.Text(), nil
}
