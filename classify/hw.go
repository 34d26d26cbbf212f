// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\classify\hw.go
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"decopress/model"
	"decopress/portal"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	selJoblineRow    = "tr.js-jobline-row"
	selGarmentCell   = "td.jobline-garment"
	attrGarment      = "data-garment"
	SelDetailContent = "table"

	detailTimeout = 10 * time.Second
)

var (
	etchKeywords = []string{"FAUX", "LEATHER", "LEATHERETTE", "SUEDE", "DENIM"}
	subKeywords  = []string{"SIMWOVEN", "WOVEN", "DECO TWILL", "DECOTWILL", "TWILL"}
	embKeywords  = []string{"EMB", "EMBROIDERY", "EMBROIDERED"}
)

// Materials はジョブ詳細の素材判定結果です。
type Materials struct {
	Emb  bool
	Etch bool
	Sub  bool
}

func (m Materials) any() bool { return m.Emb || m.Etch || m.Sub }

func (m *Materials) scan(text string) {
	text = strings.ToUpper(text)
	m.Emb = m.Emb || containsAny(text, embKeywords)
	m.Etch = m.Etch || containsAny(text, etchKeywords)
	m.Sub = m.Sub || containsAny(text, subKeywords)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// ScanMaterials はジョブ明細行の素材 (garment) を調べます。
// data-garment 属性を優先し、ページ全体で1つも一致しなければセルのテキストを調べます。
func ScanMaterials(doc *goquery.Selection) Materials {
	var m Materials
	doc.Find(selJoblineRow).Each(func(_ int, row *goquery.Selection) {
		if garment, ok := row.Attr(attrGarment); ok && garment != "" {
			m.scan(garment)
		}
	})
	if m.any() {
		return m
	}
	doc.Find(selGarmentCell).Each(func(_ int, cell *goquery.Selection) {
		m.scan(strings.TrimSpace(cell.Text()))
	})
	return m
}

// Code は全明細行を通した判定結果を返します。何も無ければ SUB です。
func (m Materials) Code() model.LetterCode {
	switch {
	case m.Emb && m.Etch:
		return model.CodeEmbEtch
	case m.Emb:
		return model.CodeEmb
	case m.Etch:
		return model.CodeEtch
	case m.Sub:
		return model.CodeSub
	}
	return model.CodeSub
}

// ResolveDeferred は仮の HW コードと詳細ページの判定結果を合わせて最終コードにします。
func ResolveDeferred(provisional, detail model.LetterCode) model.LetterCode {
	detailEtch := strings.Contains(string(detail), string(model.CodeEtch))
	switch provisional {
	case model.CodeHWEmb:
		if detailEtch {
			return model.CodeEmbEtch
		}
		return model.CodeEmb
	case model.CodeHWSub:
		if detailEtch {
			return model.CodeSubEtch
		}
		return model.CodeSub
	case model.CodeHWEtch:
		return model.CodeEtch
	}
	return detail
}

// DetailResolver は HW を含むジョブの詳細ページを開いて素材を判定します。
type DetailResolver struct {
	Page portal.Page
	// JobURL はジョブ番号から詳細ページの URL を作ります。
	JobURL func(job string) string
	Logger *zap.Logger
}

// Resolve は詳細ページで素材を判定し、終了後は必ず元のページへ戻ります。
// 現在の URL が取れない場合は listURL へ戻ります。
// 判定に失敗した場合は SUB を返しますが、ctx のキャンセルによる失敗はエラーとして返します。
func (r *DetailResolver) Resolve(ctx context.Context, job, listURL string) (model.LetterCode, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("job", job))

	back, err := r.Page.URL(ctx)
	if err != nil || back == "" {
		log.Warn("could not read current url before detail lookup, using job list url",
			zap.String("url", listURL), zap.Error(err))
		back = listURL
	}
	defer func() {
		if back == "" || ctx.Err() != nil {
			return
		}
		if err := r.Page.Navigate(ctx, back); err != nil {
			log.Warn("failed to return to job list", zap.String("url", back), zap.Error(err))
			return
		}
		_ = r.Page.WaitIdle(ctx)
	}()

	code, err := r.detailCode(ctx, job)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Warn("HW detail lookup failed, defaulting to SUB", zap.Error(err))
		return model.CodeSub, nil
	}
	log.Debug("HW detail resolved", zap.String("detail_code", string(code)))
	return code, nil
}

func (r *DetailResolver) detailCode(ctx context.Context, job string) (model.LetterCode, error) {
	url := r.JobURL(job)
	if err := r.Page.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := r.Page.WaitIdle(ctx); err != nil {
		return "", fmt.Errorf("wait for job detail: %w", err)
	}
	if err := r.Page.WaitVisible(ctx, SelDetailContent, detailTimeout); err != nil {
		return "", fmt.Errorf("job detail content: %w", err)
	}
	doc, err := portal.Snapshot(ctx, r.Page)
	if err != nil {
		return "", fmt.Errorf("read job detail: %w", err)
	}
	return ScanMaterials(doc.Selection).Code(), nil
}
