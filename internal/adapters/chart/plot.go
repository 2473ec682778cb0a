package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"tg-chat-stats-bot/internal/domain"
)

// ErrEmptySeries возвращается, когда после фильтра по пользователям в ряду
// не осталось точек.
var ErrEmptySeries = errors.New("временной ряд пуст")

const movingAverageDays = 7

// Renderer рисует PNG-графики временных рядов во временный каталог.
// Один пользователь — линия со скользящим средним, несколько — столбцы
// с накоплением по дням.
type Renderer struct {
	dir string
}

var _ domain.ChartRenderer = (*Renderer)(nil)

// NewRenderer создаёт рендерер с каталогом для артефактов.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Render строит график и возвращает путь к файлу изображения.
func (r *Renderer) Render(series []domain.SeriesPoint, users []string, title, xLabel, yLabel string) (string, error) {
	allowed := make(map[string]struct{}, len(users))
	for _, u := range users {
		allowed[u] = struct{}{}
	}
	filtered := make([]domain.SeriesPoint, 0, len(series))
	for _, p := range series {
		if _, ok := allowed[p.Username]; ok {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return "", ErrEmptySeries
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	var err error
	if len(users) == 1 {
		err = addUserLines(p, filtered)
	} else {
		err = addStackedBars(p, filtered)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("каталог графиков: %w", err)
	}
	path := filepath.Join(r.dir, uuid.NewString()+".png")
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("сохранение графика: %w", err)
	}
	return path, nil
}

// addUserLines рисует значения одного пользователя и скользящее среднее.
func addUserLines(p *plot.Plot, series []domain.SeriesPoint) error {
	p.X.Tick.Marker = plot.TimeTicks{Format: "02-01"}

	xys := make(plotter.XYs, 0, len(series))
	for _, point := range series {
		xys = append(xys, plotter.XY{X: float64(point.Day.Unix()), Y: point.Value})
	}
	sort.Slice(xys, func(i, j int) bool { return xys[i].X < xys[j].X })

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	p.Legend.Add("value", line)

	if avg := movingAverage(xys, movingAverageDays); len(avg) > 1 {
		avgLine, err := plotter.NewLine(avg)
		if err != nil {
			return err
		}
		avgLine.Color = plotutil.Color(1)
		avgLine.Dashes = plotutil.Dashes(1)
		p.Add(avgLine)
		p.Legend.Add("weekly avg", avgLine)
	}
	return nil
}

// addStackedBars рисует столбцы с накоплением: по одному слою на пользователя.
func addStackedBars(p *plot.Plot, series []domain.SeriesPoint) error {
	days, users := axes(series)

	values := make(map[string]plotter.Values, len(users))
	for _, u := range users {
		values[u] = make(plotter.Values, len(days))
	}
	dayIndex := make(map[int64]int, len(days))
	for i, d := range days {
		dayIndex[d.Unix()] = i
	}
	for _, point := range series {
		values[point.Username][dayIndex[point.Day.Unix()]] += point.Value
	}

	var prev *plotter.BarChart
	for i, u := range users {
		bars, err := plotter.NewBarChart(values[u], vg.Points(12))
		if err != nil {
			return err
		}
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(i)
		if prev != nil {
			bars.StackOn(prev)
		}
		p.Add(bars)
		p.Legend.Add(u, bars)
		prev = bars
	}

	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Format("02-01")
	}
	p.NominalX(labels...)
	return nil
}

func axes(series []domain.SeriesPoint) ([]time.Time, []string) {
	daySet := make(map[int64]time.Time)
	userSet := make(map[string]struct{})
	var users []string
	for _, p := range series {
		daySet[p.Day.Unix()] = p.Day
		if _, ok := userSet[p.Username]; !ok {
			userSet[p.Username] = struct{}{}
			users = append(users, p.Username)
		}
	}
	days := make([]time.Time, 0, len(daySet))
	for _, d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	sort.Strings(users)
	return days, users
}

// movingAverage сглаживает ряд окном в заданное число точек.
func movingAverage(xys plotter.XYs, window int) plotter.XYs {
	if len(xys) < window {
		return nil
	}
	out := make(plotter.XYs, 0, len(xys)-window+1)
	sum := 0.0
	for i, xy := range xys {
		sum += xy.Y
		if i >= window {
			sum -= xys[i-window].Y
		}
		if i >= window-1 {
			out = append(out, plotter.XY{X: xy.X, Y: sum / float64(window)})
		}
	}
	return out
}
