package mailmsg

import (
	"bytes"
	"io"
)

// boundaryPlan is built bottom-up over the MIME tree before any bytes are
// emitted: it picks each multipart node's boundary (scanning its
// descendants' post-encoding content for collisions) and records the
// Content-Transfer-Encoding chosen for every leaf, so the emit pass never
// has to re-derive either.
type boundaryPlan struct {
	boundaries map[*MimePart]string
	rendered   map[*MimePart][]byte
	cte        map[*MimePart]TransferEncoding
	hasNon7Bit bool
}

func newBoundaryPlan() *boundaryPlan {
	return &boundaryPlan{
		boundaries: make(map[*MimePart]string),
		rendered:   make(map[*MimePart][]byte),
		cte:        make(map[*MimePart]TransferEncoding),
	}
}

// WriteTo streams the message's canonical RFC 5322/MIME byte form to sink
// and returns the number of bytes written. Per spec.md §5, this is a
// single-threaded synchronous transform: Message must not be mutated
// concurrently with this call, and a failure from sink aborts immediately,
// leaving whatever valid prefix was already written.
func (m *Message) WriteTo(sink io.Writer) (int64, error) {
	if m.Root == nil {
		return 0, invariantf("message has no root MimePart")
	}
	m.env = m.env.withDefaults()

	pl := newBoundaryPlan()
	if _, err := m.plan(m.Root, pl); err != nil {
		return 0, err
	}

	w := newCountingSink(sink)
	headers := m.prepareHeaders(pl)
	for _, h := range headers {
		if err := writeHeader(w, h.Name, h.Value); err != nil {
			return w.written, err
		}
	}
	if err := m.emit(w, m.Root, pl); err != nil {
		return w.written, err
	}
	return w.written, nil
}

func (m *Message) prepareHeaders(pl *boundaryPlan) []Header {
	headers := append([]Header(nil), m.Headers...)

	if !m.HasHeader("Message-ID") {
		if id, err := m.newMessageID(); err == nil {
			headers = append(headers, Header{Name: "Message-ID", Value: MessageIDs(id)})
		}
	}
	if !m.HasHeader("Date") {
		headers = append(headers, Header{Name: "Date", Value: DateTimeHeader(m.env.now())})
	}
	if !m.HasHeader("MIME-Version") && (m.Root.isMultipart() || pl.hasNon7Bit) {
		headers = append(headers, Header{Name: "MIME-Version", Value: Text("1.0")})
	}
	return headers
}

// plan walks part's subtree bottom-up, choosing boundaries and CTEs, and
// returns the set of byte strings ("probes") that any ancestor multipart's
// boundary must not collide with.
func (m *Message) plan(part *MimePart, pl *boundaryPlan) ([][]byte, error) {
	switch body := part.Body.(type) {
	case MultipartBody:
		if !part.isMultipart() {
			return nil, invariantf("MultipartBody on part with non-multipart content type %q", part.ContentType)
		}
		var probes [][]byte
		for _, child := range body.Children {
			childProbes, err := m.plan(child, pl)
			if err != nil {
				return nil, err
			}
			probes = append(probes, childProbes...)
		}
		boundary, err := m.generateBoundary(probes)
		if err != nil {
			return nil, err
		}
		pl.boundaries[part] = boundary
		probes = append(probes, []byte("--"+boundary), []byte("--"+boundary+"--"))
		return probes, nil

	default:
		if part.isMultipart() {
			return nil, invariantf("multipart content type %q on a leaf part", part.ContentType)
		}
		cte, err := m.resolveCTE(part)
		if err != nil {
			return nil, err
		}
		pl.cte[part] = cte
		if cte != CTE7Bit {
			pl.hasNon7Bit = true
		}
		if cte == CTEBase64 {
			// Standard base64 output never contains '-', so it cannot
			// collide with a "----=_NextPart_..." boundary line; skip
			// buffering it so large attachments stream straight through.
			return nil, nil
		}
		buf, err := renderLeafBody(part, cte)
		if err != nil {
			return nil, err
		}
		pl.rendered[part] = buf
		return [][]byte{buf}, nil
	}
}

func (m *Message) resolveCTE(part *MimePart) (TransferEncoding, error) {
	if part.TransferEncoding != "" {
		switch TransferEncoding(part.TransferEncoding) {
		case CTE7Bit, CTEQuotedPrintable, CTEBase64:
			return TransferEncoding(part.TransferEncoding), nil
		default:
			return "", invariantf("invalid TransferEncoding override %q", part.TransferEncoding)
		}
	}

	text := isMediaTypeText(part.ContentType)
	switch b := part.Body.(type) {
	case Bytes:
		return analyzeBody([]byte(b), text), nil
	case Reader:
		m.env.log.Debug("mailmsg: Reader-backed body with no explicit TransferEncoding, defaulting to base64")
		return CTEBase64, nil
	default:
		return "", invariantf("leaf part has unsupported body type %T", part.Body)
	}
}

func bodyBytes(part *MimePart) ([]byte, error) {
	switch b := part.Body.(type) {
	case Bytes:
		return []byte(b), nil
	case Reader:
		data, err := io.ReadAll(b.R)
		if err != nil {
			return nil, wrapSink(err)
		}
		return data, nil
	default:
		return nil, invariantf("unsupported body type %T", part.Body)
	}
}

func renderLeafBody(part *MimePart, cte TransferEncoding) ([]byte, error) {
	raw, err := bodyBytes(part)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeLeafBody(&buf, raw, cte, isMediaTypeText(part.ContentType)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeLeafBody(w io.Writer, raw []byte, cte TransferEncoding, text bool) error {
	switch cte {
	case CTE7Bit:
		return write7Bit(w, raw)
	case CTEQuotedPrintable:
		enc := newQPEncoder(w, text)
		if _, err := enc.Write(raw); err != nil {
			return err
		}
		return enc.Close()
	case CTEBase64:
		enc := newBase64Encoder(w)
		if _, err := enc.Write(raw); err != nil {
			return err
		}
		return enc.Close()
	default:
		return invariantf("unknown transfer encoding %q", cte)
	}
}

// streamLeafBody is used for the one case plan() deliberately left
// unbuffered: a base64 leaf, possibly Reader-backed. Bytes-backed leaves
// reach here too and are simply encoded in place.
func streamLeafBody(w io.Writer, part *MimePart, cte TransferEncoding) error {
	switch b := part.Body.(type) {
	case Bytes:
		return encodeLeafBody(w, []byte(b), cte, isMediaTypeText(part.ContentType))
	case Reader:
		if cte != CTEBase64 {
			return invariantf("streaming Reader body requires base64, got %q", cte)
		}
		enc := newBase64Encoder(w)
		if _, err := io.Copy(enc, b.R); err != nil {
			return wrapSink(err)
		}
		return enc.Close()
	default:
		return invariantf("unsupported body type %T", part.Body)
	}
}

// emit writes part's headers and body to w, recursing into children for a
// MultipartBody. Boundaries and CTEs come from pl, computed by plan.
func (m *Message) emit(w *countingSink, part *MimePart, pl *boundaryPlan) error {
	switch body := part.Body.(type) {
	case MultipartBody:
		boundary := pl.boundaries[part]
		params := part.Params.Clone()
		params.Set("boundary", boundary)
		if err := writeHeader(w, "Content-Type", ContentTypeHeader(part.ContentType, params)); err != nil {
			return err
		}
		if err := writeExtraHeaders(w, part); err != nil {
			return err
		}
		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
		for _, child := range body.Children {
			if _, err := w.WriteString("--" + boundary + "\r\n"); err != nil {
				return err
			}
			if err := m.emit(w, child, pl); err != nil {
				return err
			}
		}
		_, err := w.WriteString("--" + boundary + "--\r\n")
		return err

	default:
		cte := pl.cte[part]
		if err := writeHeader(w, "Content-Type", ContentTypeHeader(part.ContentType, part.Params)); err != nil {
			return err
		}
		if err := writeHeader(w, "Content-Transfer-Encoding", Text(string(cte))); err != nil {
			return err
		}
		if err := writeDisposition(w, part); err != nil {
			return err
		}
		if part.Disposition == DispositionInline || part.CID != "" {
			cid := part.CID
			if cid == "" {
				var err error
				cid, err = m.newContentID()
				if err != nil {
					return err
				}
			}
			if err := writeHeader(w, "Content-ID", Raw([]byte("<"+cid+">"))); err != nil {
				return err
			}
		}
		if err := writeExtraHeaders(w, part); err != nil {
			return err
		}
		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
		if rendered, ok := pl.rendered[part]; ok {
			if _, err := w.Write(rendered); err != nil {
				return err
			}
		} else if err := streamLeafBody(w, part, cte); err != nil {
			return err
		}
		_, err := w.WriteString("\r\n")
		return err
	}
}

func writeDisposition(w *countingSink, part *MimePart) error {
	if part.Disposition == DispositionUnspecified && part.Filename == "" {
		return nil
	}
	disp := part.Disposition.String()
	if disp == "" {
		disp = DispositionAttachment.String()
	}
	tokens := []string{disp}
	if part.Filename != "" {
		tokens = append(tokens, renderParam("filename", part.Filename)...)
	}
	return writeFolded(w, "Content-Disposition", tokens, ";")
}

func writeExtraHeaders(w *countingSink, part *MimePart) error {
	for _, h := range part.Headers {
		if err := writeHeader(w, h.Name, h.Value); err != nil {
			return err
		}
	}
	return nil
}
