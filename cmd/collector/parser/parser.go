package parser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/advancedlogic/GoOse/pkg/goose"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var ErrNoContent = errors.New("no readable content")

type ParsedPage struct {
	Title            string
	PlainTextContent string
	TopImage         string
	// Extractor 는 결과를 만든 추출기 이름이다 (readability | trafilatura | goose).
	Extractor string
}

type extractor struct {
	name string
	fn   func(htmlStr string, pageURL *url.URL) (*ParsedPage, error)
}

// readability 를 먼저 쓰고, 본문이 비면 trafilatura, goose 순으로 시도한다.
var extractors = []extractor{
	{"readability", ParseHtmlWithReadability},
	{"trafilatura", ParseHtmlWithTrafilatura},
	{"goose", ParseHtmlWithGoose},
}

// ParsePage 는 경쟁 매장 페이지에서 제목과 본문 텍스트를 뽑는다.
func ParsePage(htmlStr, pageURL string) (*ParsedPage, error) {
	if strings.TrimSpace(htmlStr) == "" {
		return nil, ErrNoContent
	}
	u, _ := url.Parse(pageURL)

	var errs []error
	for _, ex := range extractors {
		page, err := ex.fn(htmlStr, u)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ex.name, err))
			continue
		}
		page.PlainTextContent = strings.TrimSpace(page.PlainTextContent)
		if page.PlainTextContent == "" {
			continue
		}
		page.Title = strings.TrimSpace(page.Title)
		page.Extractor = ex.name
		return page, nil
	}
	return nil, errors.Join(append([]error{ErrNoContent}, errs...)...)
}

func ParseHtmlWithReadability(htmlStr string, pageURL *url.URL) (*ParsedPage, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}

	article, err := readability.FromDocument(doc, pageURL)
	if err != nil {
		return nil, err
	}
	return &ParsedPage{
		Title:            article.Title,
		PlainTextContent: article.TextContent,
		TopImage:         article.Image,
	}, nil
}

func ParseHtmlWithTrafilatura(htmlStr string, pageURL *url.URL) (*ParsedPage, error) {
	opts := trafilatura.Options{
		IncludeImages: true,
		OriginalURL:   pageURL,
	}

	article, err := trafilatura.Extract(strings.NewReader(htmlStr), opts)
	if err != nil {
		return nil, err
	}

	return &ParsedPage{
		Title:            article.Metadata.Title,
		PlainTextContent: article.ContentText,
		TopImage:         article.Metadata.Image,
	}, nil
}

func ParseHtmlWithGoose(htmlStr string, pageURL *url.URL) (page *ParsedPage, err error) {
	// goose 는 일부 비정형 문서에서 panic 한다.
	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("goose panic: %v", r)
		}
	}()

	link := ""
	if pageURL != nil {
		link = pageURL.String()
	}
	g := goose.New()
	article, err := g.ExtractFromRawHTML(htmlStr, link)
	if err != nil {
		return nil, err
	}
	return &ParsedPage{
		Title:            article.Title,
		PlainTextContent: article.CleanedText,
		TopImage:         article.TopImage,
	}, nil
}

// Summary 는 본문을 rune 기준 max 글자로 자른다.
func Summary(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if max <= 0 || len(r) <= max {
		return text
	}
	return string(r[:max])
}
