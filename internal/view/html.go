package view

import (
	"html/template"
	"io"
)

// pageTmpl mirrors the kiosk layout: a fixed rail on the right linking to
// #date-<key> anchors and one section per day with a sticky heading.
// data-ready tells the screenshot capture that rendering finished.
var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="60">
<title>Schedule</title>
<style>
body{background:#000;color:#fff;font-family:sans-serif;margin:0}
.days{max-width:56rem;margin:0 auto;padding:0 .5rem}
.rail{position:fixed;right:0;top:50%;transform:translateY(-50%);background:rgba(0,0,0,.5);border-radius:.5rem;max-height:100vh;overflow-y:auto;padding:1rem 0}
.rail a{display:flex;flex-direction:column;align-items:center;color:#d1d5db;text-decoration:none;padding:.35rem .5rem}
.rail a:hover,.rail a.today{color:#ef4444}
.rail .wd{font-size:.75rem;opacity:.75}
section{margin-bottom:3rem;scroll-margin-top:6rem}
section h2{position:sticky;top:4rem;background:rgba(0,0,0,.8);margin:0;padding:.5rem 0}
.event{margin:1.5rem 0}
.event .time{color:#9ca3af}
</style>
</head>
<body>
<main class="days" data-ready="true">
<nav class="rail">
{{- range .Nav}}
<a href="#{{.Anchor}}"{{if .Today}} class="today"{{end}}><span>{{.Day}}</span><span class="wd">{{.Weekday}}</span></a>
{{- end}}
</nav>
{{- range .Sections}}
<section id="{{.Anchor}}"{{if .Today}} class="today"{{end}}>
<h2>{{.Heading}}</h2>
{{- range .Items}}
<div data-key="{{.Key}}"{{if .Rollover}} data-rollover="{{.EffectiveDate}}"{{end}}>{{.Body}}</div>
{{- end}}
</section>
{{- end}}
</main>
</body>
</html>
`))

// WriteHTML renders the full schedule page.
func WriteHTML(w io.Writer, page Page) error {
	return pageTmpl.Execute(w, page)
}
