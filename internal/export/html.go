package export

import (
	"bytes"
	"fmt"
	"html/template"
)

// htmlTemplate is a self-contained email body: inline styles only, no
// external assets.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body style="font-family: Georgia, serif; max-width: 680px; margin: 0 auto; padding: 16px; color: #222;">
<h1 style="font-size: 24px; border-bottom: 2px solid #222; padding-bottom: 8px;">{{.Title}}</h1>
{{if not .Podcasts}}<p>No digests for this period.</p>{{end}}
{{range .Podcasts}}
<h2 style="font-size: 20px; margin-top: 28px;">{{.Name}}</h2>
{{range .Episodes}}
<h3 style="font-size: 17px; margin-bottom: 4px;">{{.Title}}</h3>
{{if .Published}}<p style="color: #666; font-size: 13px; margin-top: 0;">Published {{.Published}}</p>{{end}}
{{if .KeyTopics}}<p style="margin-bottom: 4px;"><strong>Key topics</strong></p>
<ul>{{range .KeyTopics}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{range .Quotes}}<blockquote style="border-left: 3px solid #ccc; margin-left: 0; padding-left: 12px; color: #444;">{{.}}</blockquote>{{end}}
<p>{{.Summary}}</p>
{{end}}
{{end}}
</body>
</html>
`

var htmlTmpl = template.Must(template.New("digest").Parse(htmlTemplate))

type htmlEpisode struct {
	Title     string
	Published string
	KeyTopics []string
	Quotes    []string
	Summary   string
}

type htmlPodcast struct {
	Name     string
	Episodes []htmlEpisode
}

type htmlDocument struct {
	Title    string
	Podcasts []htmlPodcast
}

func renderHTML(digest Digest) ([]byte, error) {
	doc := htmlDocument{Title: digest.Title()}
	for _, group := range groupByPodcast(digest.Rows) {
		podcast := htmlPodcast{Name: heading(group.Name)}
		for _, row := range group.Episodes {
			episode := htmlEpisode{
				Title:     row.EpisodeTitle,
				KeyTopics: row.KeyTopics,
				Quotes:    row.Quotes,
				Summary:   row.Summary.Summary,
			}
			if row.PublishedAt != nil {
				episode.Published = row.PublishedAt.Format("January 2, 2006")
			}
			podcast.Episodes = append(podcast.Episodes, episode)
		}
		doc.Podcasts = append(doc.Podcasts, podcast)
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render html digest: %w", err)
	}
	return buf.Bytes(), nil
}
