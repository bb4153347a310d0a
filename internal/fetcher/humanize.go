package fetcher

import (
	"context"
	"math/rand"
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Complexity 行为复杂度档位,决定阅读延迟的基数和抖动范围
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// delayParams 返回复杂度对应的(基数, 抖动范围)
func (c Complexity) delayParams() (base, variation time.Duration) {
	switch c {
	case ComplexitySimple:
		return 1000 * time.Millisecond, 1000 * time.Millisecond
	case ComplexityComplex:
		return 3000 * time.Millisecond, 4000 * time.Millisecond
	default:
		return 2000 * time.Millisecond, 2000 * time.Millisecond
	}
}

// Behavior 人类行为序列生成器
// 纯生成器: 只产出延迟/动作计划,不接触浏览器;随机源可注入以便测试
type Behavior struct {
	rnd *rand.Rand
}

// NewBehavior 创建行为生成器
func NewBehavior(rnd *rand.Rand) *Behavior {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Behavior{rnd: rnd}
}

// ReadingDelay 按复杂度生成一次模拟阅读延迟: base + uniform(0, range)
func (b *Behavior) ReadingDelay(c Complexity) time.Duration {
	base, variation := c.delayParams()
	return base + time.Duration(b.rnd.Int63n(int64(variation)))
}

// Waypoint 指针移动途经点
type Waypoint struct {
	X, Y  float64
	Steps int           // 移动分段数
	Pause time.Duration // 到达后停顿
}

// PointerPlan 生成指针移动计划: 2-4个视口内随机途经点
func (b *Behavior) PointerPlan() []Waypoint {
	count := b.rnd.Intn(3) + 2
	points := make([]Waypoint, count)
	for i := range points {
		points[i] = Waypoint{
			X:     float64(b.rnd.Intn(800) + 100),
			Y:     float64(b.rnd.Intn(600) + 100),
			Steps: b.rnd.Intn(10) + 5,
			Pause: time.Duration(b.rnd.Intn(500)+200) * time.Millisecond,
		}
	}
	return points
}

// ScrollSession 一段滚动: 总距离拆分为多个步进
type ScrollSession struct {
	Distance     int             // 总滚动距离(px)
	Steps        int             // 步进数
	StepPauses   []time.Duration // 每步之间的停顿
	SessionPause time.Duration   // 本段结束后的停顿(最后一段为0)
}

// ScrollPlan 滚动计划
type ScrollPlan struct {
	Sessions []ScrollSession
	// Backtrack 向上回滚距离,0表示不回滚(30%概率触发)
	Backtrack      int
	BacktrackPause time.Duration
}

// NewScrollPlan 生成滚动计划: 2-5段,每段200-1000px分3-7步
func (b *Behavior) NewScrollPlan() ScrollPlan {
	sessionCount := b.rnd.Intn(4) + 2
	sessions := make([]ScrollSession, sessionCount)

	for i := range sessions {
		steps := b.rnd.Intn(5) + 3
		pauses := make([]time.Duration, steps)
		for j := range pauses {
			pauses[j] = time.Duration(b.rnd.Intn(800)+300) * time.Millisecond
		}

		s := ScrollSession{
			Distance:   b.rnd.Intn(800) + 200,
			Steps:      steps,
			StepPauses: pauses,
		}
		if i < sessionCount-1 {
			s.SessionPause = time.Duration(b.rnd.Intn(2000)+1000) * time.Millisecond
		}
		sessions[i] = s
	}

	plan := ScrollPlan{Sessions: sessions}
	if b.rnd.Float64() < 0.3 {
		plan.Backtrack = b.rnd.Intn(400) + 100
		plan.BacktrackPause = time.Duration(b.rnd.Intn(1000)+500) * time.Millisecond
	}
	return plan
}

// FocusPoint 阅读聚焦点
type FocusPoint struct {
	X, Y  float64
	Steps int
	Dwell time.Duration // 驻留时间(模拟阅读)
}

// ReadingPlan 生成阅读计划: 2-4个聚焦点,每点驻留1.5-4.5秒
func (b *Behavior) ReadingPlan() []FocusPoint {
	count := b.rnd.Intn(3) + 2
	points := make([]FocusPoint, count)
	for i := range points {
		// 三个候选聚焦区域,随机取一个
		var x, y float64
		switch b.rnd.Intn(3) {
		case 0:
			x, y = b.rnd.Float64()*400+100, b.rnd.Float64()*300+100
		case 1:
			x, y = b.rnd.Float64()*400+400, b.rnd.Float64()*300+200
		default:
			x, y = b.rnd.Float64()*600+200, b.rnd.Float64()*400+300
		}
		points[i] = FocusPoint{
			X:     x,
			Y:     y,
			Steps: b.rnd.Intn(8) + 3,
			Dwell: time.Duration(b.rnd.Intn(3000)+1500) * time.Millisecond,
		}
	}
	return points
}

// ExploreStop 页面探访停留点
type ExploreStop struct {
	X, Y  float64
	Steps int
	Dwell time.Duration
	Hover time.Duration // 额外悬停,0表示无(30%概率)
}

// ExplorationPlan 完整页面探访计划
type ExplorationPlan struct {
	Stops       []ExploreStop
	BottomPause time.Duration // 滚到底部后的停顿
	TopPause    time.Duration // 回到顶部后的停顿
}

// explorationRegions 固定的五个探访区域(页头/主内容/中部/下部/侧栏)
var explorationRegions = [][2]float64{
	{200, 150},
	{400, 300},
	{300, 500},
	{500, 700},
	{150, 400},
}

// NewExplorationPlan 生成页面探访计划: 五个固定区域按序访问
func (b *Behavior) NewExplorationPlan() ExplorationPlan {
	stops := make([]ExploreStop, 0, len(explorationRegions))
	for _, region := range explorationRegions {
		stop := ExploreStop{
			X:     region[0],
			Y:     region[1],
			Steps: b.rnd.Intn(12) + 8,
			Dwell: time.Duration(b.rnd.Intn(1500)+800) * time.Millisecond,
		}
		if b.rnd.Float64() < 0.3 {
			stop.Hover = time.Duration(b.rnd.Intn(500)+200) * time.Millisecond
		}
		stops = append(stops, stop)
	}

	return ExplorationPlan{
		Stops:       stops,
		BottomPause: time.Duration(b.rnd.Intn(2000)+1000) * time.Millisecond,
		TopPause:    time.Duration(b.rnd.Intn(1000)+500) * time.Millisecond,
	}
}

// ---- 计划执行: 把生成的动作序列落到rod页面上 ----

// applyPointer 执行指针移动计划
func applyPointer(ctx context.Context, page *rod.Page, plan []Waypoint) error {
	for _, wp := range plan {
		if err := page.Mouse.MoveLinear(proto.NewPoint(wp.X, wp.Y), wp.Steps); err != nil {
			return err
		}
		if err := sleepCtx(ctx, wp.Pause); err != nil {
			return err
		}
	}
	return nil
}

// applyScrolling 执行滚动计划
func applyScrolling(ctx context.Context, page *rod.Page, plan ScrollPlan) error {
	for _, session := range plan.Sessions {
		stepDistance := session.Distance / session.Steps
		for _, pause := range session.StepPauses {
			if _, err := page.Eval(`(d) => window.scrollBy(0, d)`, stepDistance); err != nil {
				return err
			}
			if err := sleepCtx(ctx, pause); err != nil {
				return err
			}
		}
		if err := sleepCtx(ctx, session.SessionPause); err != nil {
			return err
		}
	}

	if plan.Backtrack > 0 {
		if err := sleepCtx(ctx, plan.BacktrackPause); err != nil {
			return err
		}
		if _, err := page.Eval(`(d) => window.scrollBy(0, -d)`, plan.Backtrack); err != nil {
			return err
		}
	}
	return nil
}

// applyReading 执行阅读计划
func applyReading(ctx context.Context, page *rod.Page, plan []FocusPoint) error {
	for _, fp := range plan {
		if err := page.Mouse.MoveLinear(proto.NewPoint(fp.X, fp.Y), fp.Steps); err != nil {
			return err
		}
		if err := sleepCtx(ctx, fp.Dwell); err != nil {
			return err
		}
	}
	return nil
}

// applyExploration 执行页面探访计划
func applyExploration(ctx context.Context, page *rod.Page, plan ExplorationPlan) error {
	utils.Debugf("     🔍 检查页面元素...")

	for _, stop := range plan.Stops {
		if err := page.Mouse.MoveLinear(proto.NewPoint(stop.X, stop.Y), stop.Steps); err != nil {
			return err
		}
		if err := sleepCtx(ctx, stop.Dwell); err != nil {
			return err
		}
		if stop.Hover > 0 {
			if err := sleepCtx(ctx, stop.Hover); err != nil {
				return err
			}
		}
	}

	utils.Debugf("     📄 滚动到页面底部检查内容长度...")
	if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return err
	}
	if err := sleepCtx(ctx, plan.BottomPause); err != nil {
		return err
	}

	if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		return err
	}
	return sleepCtx(ctx, plan.TopPause)
}
