// Package web 內嵌瀏覽器客戶端
package web

import _ "embed"

// IndexHTML 單頁客戶端
//
//go:embed index.html
var IndexHTML []byte
