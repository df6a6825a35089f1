package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// Document is the minimal HTML report: metric list, config and sample count.
func Document(rep *Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
		p.text("Evaluation report " + rep.RunID)
		p.raw("</title>\n<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}" +
			"td,th{border:1px solid #ccc;padding:.25rem .75rem;text-align:left}td.score{text-align:right}</style>\n</head>\n<body>\n")

		p.raw("<h1>Evaluation report</h1>\n<p>Run <code>")
		p.text(rep.RunID)
		p.raw("</code> created ")
		p.text(rep.CreatedAt.UTC().Format(time.RFC3339))
		p.raw("</p>\n")

		p.raw("<h2>Metrics</h2>\n<table id=\"metrics\">\n<tr><th>Metric</th><th>Score</th></tr>\n")
		if rep.Metrics != nil {
			for _, s := range rep.Metrics.Scores() {
				p.raw("<tr><td>")
				p.text(s.Name)
				p.raw("</td><td class=\"score\">")
				p.text(formatScore(s.Value))
				p.raw("</td></tr>\n")
			}
		}
		p.raw("</table>\n")

		p.raw("<h2>Samples</h2>\n<p id=\"num-samples\">")
		p.text(fmt.Sprintf("%d samples", rep.NumSamples))
		if rep.Coverage.Excluded > 0 {
			p.text(fmt.Sprintf(" (%d excluded from ranking metrics)", rep.Coverage.Excluded))
		}
		p.raw("</p>\n")

		if rep.Ranking != nil {
			p.ranking(rep.Ranking)
		}

		p.raw("<h2>Config</h2>\n<table id=\"config\">\n")
		for _, kv := range sortedConfig(rep.Config) {
			p.raw("<tr><th>")
			p.text(kv[0])
			p.raw("</th><td>")
			p.text(kv[1])
			p.raw("</td></tr>\n")
		}
		p.raw("</table>\n</body>\n</html>\n")
		return p.err
	})
}

// WriteHTML renders Document to w.
func WriteHTML(w io.Writer, rep *Report) error {
	return Document(rep).Render(context.Background(), w)
}

func (p *printer) ranking(r *Ranking) {
	p.raw("<h2>Per-query ranking</h2>\n<table id=\"ranking\">\n")
	p.raw("<tr><th>Query</th><th>Results</th><th>Recall</th><th>Precision</th><th>nDCG</th><th>RR</th><th>AP</th></tr>\n")
	for _, s := range r.Samples {
		p.raw("<tr><td>")
		p.text(s.QueryID)
		p.raw("</td><td class=\"score\">")
		p.text(fmt.Sprint(s.ResultCount))
		if !s.Qualifies {
			p.raw("</td><td colspan=\"5\">excluded</td></tr>\n")
			continue
		}
		for _, v := range []float64{s.Recall, s.Precision, s.NDCG, s.MRR, s.AP} {
			p.raw("</td><td class=\"score\">")
			p.text(formatScore(v))
		}
		p.raw("</td></tr>\n")
	}
	p.raw("</table>\n<p id=\"ranking-summary\">")
	p.text(fmt.Sprintf("%d queries at k=%d: MAP %s", r.Summary.QueryCount, r.Summary.K, formatScore(r.Summary.MAP)))
	p.raw("</p>\n")
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}
