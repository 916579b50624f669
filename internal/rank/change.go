package rank

import "fmt"

// Direction 은 순위 변화의 방향을 나타낸다.
type Direction string

const (
	DirectionNew  Direction = "new"
	DirectionLost Direction = "lost"
	DirectionSame Direction = "same"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Change 는 한 영역의 순위 변화 분석 결과.
// 표시용 정보이며 저장되지 않는다. 저장 대상은 현재/이전 순위 수치뿐이다.
type Change struct {
	Direction Direction
	Amount    int    // 변화 계단 수. new/lost/same 은 0.
	Message   string // 사용자에게 그대로 표시 가능한 한국어 메시지
}

// Classify 는 현재 순위와 이전 순위를 비교해 변화를 분류한다.
// nil 은 해당 영역에서 순위가 없음을 의미한다.
func Classify(current, previous *int) Change {
	switch {
	case current == nil && previous == nil:
		return Change{Direction: DirectionNew, Message: "새로 추적 시작"}
	case current == nil:
		return Change{Direction: DirectionLost, Message: "순위 이탈"}
	case previous == nil:
		return Change{Direction: DirectionNew, Message: fmt.Sprintf("%d위 진입!", *current)}
	case *current == *previous:
		return Change{Direction: DirectionSame, Message: "순위 유지"}
	}

	diff := *previous - *current
	if diff > 0 {
		return Change{Direction: DirectionUp, Amount: diff, Message: fmt.Sprintf("%d계단 상승!", diff)}
	}
	return Change{Direction: DirectionDown, Amount: -diff, Message: fmt.Sprintf("%d계단 하락", -diff)}
}
