package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	_ "image/png"

	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
)

// readyExpr is true once the page's readiness script has run to completion.
const readyExpr = `window.__renderReady === true`

// ReadinessScript sets window.__renderReady after the document's fonts are
// loaded and every image has loaded or failed. window.__fontLoaded records
// whether the face named in <html data-font-family> is usable.
const ReadinessScript = `(function () {
  window.__renderReady = false;
  window.__fontLoaded = false;
  function imageSettled(img) {
    if (img.complete) {
      return img.decode ? img.decode().catch(function () {}) : Promise.resolve();
    }
    return new Promise(function (resolve) {
      img.addEventListener("load", resolve, { once: true });
      img.addEventListener("error", resolve, { once: true });
    });
  }
  function start() {
    var family = document.documentElement.getAttribute("data-font-family");
    var el = document.getElementById("content");
    var text = el ? el.textContent : "";
    var face = family ? document.fonts.load('16px "' + family + '"', text).catch(function () {}) : Promise.resolve();
    var images = Array.prototype.map.call(document.images, imageSettled);
    Promise.all([face, document.fonts.ready, Promise.all(images)]).then(function () {
      if (family) {
        try { window.__fontLoaded = document.fonts.check('16px "' + family + '"', text); } catch (e) {}
      }
      setTimeout(function () { window.__renderReady = true; }, 0);
    });
  }
  if (document.readyState === "loading") {
    document.addEventListener("DOMContentLoaded", start);
  } else {
    start();
  }
})();`

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="{{.Lang}}" dir="{{.Dir}}" data-font-family="{{.Family}}">
<head>
<meta charset="utf-8">
<style>
@font-face {
  font-family: "{{.Family}}";
  src: url("{{.FontSrc}}") format("{{.Format}}");
  font-display: block;
}
html, body { margin: 0; padding: 0; background: #ffffff; }
body {
  font-family: "{{.Family}}", Arial, sans-serif;
  direction: {{.Dir}};
  text-align: center;
}
#content {
  position: relative;
  display: inline-block;
  margin-top: 250px;
  padding: 8px 16px;
  font-size: {{.FontSizePx}}px;
  line-height: 1.4;
  color: #111111;
}
#content img { display: block; }
.text-layer {
  position: absolute;
  inset: 0;
  padding: 8px 16px;
  color: transparent;
}
</style>
<script>{{.Script}}</script>
</head>
<body>
{{- if .ImageSrc}}
<div id="content"><img id="raster" src="{{.ImageSrc}}" width="{{.ImageWidth}}" height="{{.ImageHeight}}" alt="{{.Text}}"><span class="text-layer">{{.Text}}</span></div>
{{- else}}
<div id="content">{{.Text}}</div>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Lang       string
	Dir        string
	Family     string
	FontSrc    template.URL
	Format     string
	FontSizePx int
	Text       string
	Script     template.JS

	ImageSrc    template.URL
	ImageWidth  int
	ImageHeight int
}

// Document is self-contained markup ready to be loaded into a surface.
type Document struct {
	HTML     string
	Strategy domain.FontStrategy
}

// Builder turns a RenderRequest into markup.
type Builder struct {
	FontURL    string // where link-url documents fetch the font
	FontSizePx int
}

// Build renders the text page for req. For rasterize-image this is the first
// pass, which always embeds the font.
func (b *Builder) Build(req domain.RenderRequest, font *FontAsset) (Document, error) {
	data := b.base(req, font)
	switch req.Strategy {
	case domain.FontLinkURL:
		data.FontSrc = template.URL(b.FontURL)
	case domain.FontEmbedBase64, domain.FontRasterizeImage, "":
		data.FontSrc = template.URL(font.DataURI())
	default:
		return Document{}, fmt.Errorf("unknown font strategy %q", req.Strategy)
	}
	html, err := execute(data)
	if err != nil {
		return Document{}, err
	}
	return Document{HTML: html, Strategy: req.Strategy}, nil
}

// ImagePage renders the second rasterize-image pass: the PNG of the text,
// shown at 1/scale of its pixel size, with the real text laid over it in
// transparent ink so it can still be selected and copied.
func (b *Builder) ImagePage(req domain.RenderRequest, font *FontAsset, png []byte, scale float64) (Document, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return Document{}, fmt.Errorf("decode rasterized text: %w", err)
	}
	if scale <= 0 {
		scale = 1
	}
	data := b.base(req, font)
	data.FontSrc = template.URL(font.DataURI())
	data.ImageSrc = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	data.ImageWidth = int(float64(cfg.Width) / scale)
	data.ImageHeight = int(float64(cfg.Height) / scale)

	html, err := execute(data)
	if err != nil {
		return Document{}, err
	}
	return Document{HTML: html, Strategy: domain.FontRasterizeImage}, nil
}

func (b *Builder) base(req domain.RenderRequest, font *FontAsset) pageData {
	dir := req.Dir
	if dir == "" {
		dir = Direction(req.Text)
	}
	lang := req.Lang
	if lang == "" {
		lang = "ar"
	}
	size := b.FontSizePx
	if size <= 0 {
		size = 48
	}
	return pageData{
		Lang:       lang,
		Dir:        dir,
		Family:     font.Family,
		Format:     font.Format,
		FontSizePx: size,
		Text:       req.Text,
		Script:     template.JS(ReadinessScript),
	}
}

func execute(data pageData) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render page template: %w", err)
	}
	return buf.String(), nil
}
