/*
Copyright 2023 The Nanosoldier Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/russross/blackfriday/v2"
)

const htmlShell = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%s</title></head><body>
%s
</body></html>
`

// RenderHTML renders the report markdown into a standalone HTML page.
func RenderHTML(title string, md []byte) []byte {
	body := blackfriday.Run(md, blackfriday.WithExtensions(blackfriday.CommonExtensions))
	return []byte(fmt.Sprintf(htmlShell, title, body))
}

// uploadRendering renders <repo>/<rel>/report.md and uploads it next to the
// staged directory in the bucket.
func (p *Publisher) uploadRendering(rel string) error {
	md, err := os.ReadFile(filepath.Join(p.Repo.Dir, rel, "report.md"))
	if err != nil {
		return err
	}
	html := RenderHTML(rel, md)
	_, err = p.Uploader.Upload(rel+"/report.html", "text/html; charset=utf-8", bytes.NewReader(html))
	return err
}
