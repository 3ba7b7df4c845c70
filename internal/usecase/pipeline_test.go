package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"BulletScreen/internal/domain"
	"BulletScreen/internal/infrastructure/bilibili"
	"BulletScreen/internal/infrastructure/parser"
	"BulletScreen/internal/infrastructure/transport"
)

type stubResolver struct {
	cid    domain.ContentID
	err    error
	gotRef domain.VideoReference
}

func (s *stubResolver) ResolvePublicID(rawURL string) (domain.VideoReference, error) {
	return bilibili.ResolvePublicID(rawURL)
}

func (s *stubResolver) ResolveContentID(_ context.Context, ref domain.VideoReference) (domain.ContentID, error) {
	s.gotRef = ref
	return s.cid, s.err
}

type stubFetcher struct {
	body   string
	err    error
	gotURL string
	calls  int
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (domain.Document, error) {
	s.calls++
	s.gotURL = rawURL
	if s.err != nil {
		return domain.Document{}, s.err
	}
	return domain.Document{Body: []byte(s.body), Encoding: domain.EncodingNone}, nil
}

func newTestPipeline(r *stubResolver, f *stubFetcher) *Pipeline {
	return NewPipeline(PipelineDeps{
		Resolver:   r,
		Fetcher:    f,
		Parser:     parser.NewDanmakuParser(nil),
		CommentURL: "https://api.bilibili.com/x/v1/dm/list.so",
	})
}

func TestPipelineRun(t *testing.T) {
	t.Parallel()

	r := &stubResolver{cid: 7}
	f := &stubFetcher{body: `<i><d p="5.2,1,25,16777215,123456789,0,abcdef,0">hello</d></i>`}

	comments, err := newTestPipeline(r, f).Run(context.Background(), "https://www.bilibili.com/video/BV1gE411B7ks")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if r.gotRef != "BV1gE411B7ks" {
		t.Fatalf("resolver received %q", r.gotRef)
	}
	if f.gotURL != "https://api.bilibili.com/x/v1/dm/list.so?oid=7" {
		t.Fatalf("unexpected comment endpoint: %s", f.gotURL)
	}
	if len(comments) != 1 || comments[0].Text != "hello" {
		t.Fatalf("unexpected comments: %+v", comments)
	}
}

func TestPipelineRunResolutionFailureSkipsFetch(t *testing.T) {
	t.Parallel()

	r := &stubResolver{cid: domain.FailureSentinel}
	f := &stubFetcher{}

	_, err := newTestPipeline(r, f).Run(context.Background(), "https://www.bilibili.com/video/BV1gE411B7ks")
	if !errors.Is(err, domain.ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("fetcher should not be called after a resolution failure")
	}
	if FailureMessage(err) != MessageResolution {
		t.Fatalf("unexpected message %q", FailureMessage(err))
	}
}

func TestPipelineRunTransportFailure(t *testing.T) {
	t.Parallel()

	r := &stubResolver{cid: 7}
	f := &stubFetcher{err: domain.ErrTransport}

	_, err := newTestPipeline(r, f).Run(context.Background(), "https://www.bilibili.com/video/BV1gE411B7ks")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if FailureMessage(err) != MessageTransport {
		t.Fatalf("unexpected message %q", FailureMessage(err))
	}
}

func TestPipelineRunMalformedURL(t *testing.T) {
	t.Parallel()

	_, err := newTestPipeline(&stubResolver{cid: 7}, &stubFetcher{}).Run(context.Background(), "https://www.bilibili.com/")
	if !errors.Is(err, domain.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
	if FailureMessage(err) != MessageMalformedInput {
		t.Fatalf("unexpected message %q", FailureMessage(err))
	}
}

func TestPipelineEndToEndEmptyDocument(t *testing.T) {
	t.Parallel()

	upstream := http.NewServeMux()
	upstream.HandleFunc("/x/player/pagelist", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"message":"0","ttl":1,"data":[{"cid":42}]}`))
	})
	upstream.HandleFunc("/x/v1/dm/list.so", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("oid") != "42" {
			t.Errorf("oid = %q, want 42", r.URL.Query().Get("oid"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>maintenance"))
	})
	server := httptest.NewServer(upstream)
	defer server.Close()

	p := NewPipeline(PipelineDeps{
		Resolver:   bilibili.NewResolver(server.URL+"/x/player/pagelist", "", server.Client(), nil),
		Fetcher:    transport.NewFetcher(transport.Options{Timeout: 2 * time.Second}, nil),
		Parser:     parser.NewDanmakuParser(nil),
		CommentURL: server.URL + "/x/v1/dm/list.so",
	})

	comments, err := p.Run(context.Background(), "https://www.bilibili.com/video/BV1gE411B7ks")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if comments == nil || len(comments) != 0 {
		t.Fatalf("expected empty, non-nil comments, got %#v", comments)
	}

	body, err := EncodeComments(comments)
	if err != nil {
		t.Fatalf("EncodeComments error: %v", err)
	}
	if string(body) != `{"code":0,"data":[]}` {
		t.Fatalf("unexpected envelope: %s", body)
	}
}

func TestEncodeComments(t *testing.T) {
	t.Parallel()

	body, err := EncodeComments([]domain.Comment{
		{Sequence: 0, PlaybackOffset: 5.2, PostedAt: time.Unix(123456789, 0), Text: "<hello> & bye"},
		{Sequence: 1, PlaybackOffset: 10, PostedAt: time.Unix(0, 0), Text: "world"},
	})
	if err != nil {
		t.Fatalf("EncodeComments error: %v", err)
	}

	var decoded struct {
		Code int `json:"code"`
		Data []struct {
			ID   int     `json:"id"`
			Date string  `json:"date"`
			Time float64 `json:"time"`
			Text string  `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}

	if decoded.Code != ResponseCodeSuccess || len(decoded.Data) != 2 {
		t.Fatalf("unexpected envelope: %s", body)
	}
	if decoded.Data[0].Date != "Thu, 29 Nov 1973 21:33:09 GMT" {
		t.Fatalf("unexpected date: %s", decoded.Data[0].Date)
	}
	if decoded.Data[1].Date != "Thu, 01 Jan 1970 00:00:00 GMT" {
		t.Fatalf("unexpected epoch date: %s", decoded.Data[1].Date)
	}
	if decoded.Data[0].Time != 5.2 || decoded.Data[1].ID != 1 {
		t.Fatalf("unexpected items: %+v", decoded.Data)
	}
	if decoded.Data[0].Text != "<hello> & bye" {
		t.Fatalf("unexpected text: %q", decoded.Data[0].Text)
	}
}

func TestCommentEndpointKeepsExistingQuery(t *testing.T) {
	t.Parallel()

	got, err := commentEndpoint("https://api.bilibili.com/x/v1/dm/list.so?type=1", 99)
	if err != nil {
		t.Fatalf("commentEndpoint error: %v", err)
	}
	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Query().Get("oid") != "99" || parsed.Query().Get("type") != "1" {
		t.Fatalf("unexpected endpoint: %s", got)
	}
}
