package tracker

import (
	"fmt"
	"regexp"
	"strconv"
)

// Record summarizes a batch of episodes run in one phase
type Record struct {
	Phase         string // TRAIN, VAL, or TEST
	Episode       int
	SuccessRate   float64
	CollisionRate float64
	NavTime       float64
	TotalReward   float64
	Epsilon       float64
}

// String returns the log line of a Record
func (r Record) String() string {
	return fmt.Sprintf("%-5s in episode %d has success rate: %.2f, "+
		"collision rate: %.2f, nav time: %.2f, total reward: %.4f, "+
		"epsilon: %.4f", r.Phase, r.Episode, r.SuccessRate, r.CollisionRate,
		r.NavTime, r.TotalReward, r.Epsilon)
}

var recordPattern = regexp.MustCompile(`(TRAIN|VAL|TEST)\s+in episode ` +
	`(\d+) has success rate: ([-\d.]+), collision rate: ([-\d.]+), ` +
	`nav time: ([-\d.]+), total reward: ([-\d.]+), epsilon: ([-\d.]+)`)

// ParseRecord parses the Record in a log line
func ParseRecord(line string) (Record, error) {
	match := recordPattern.FindStringSubmatch(line)
	if match == nil {
		return Record{}, fmt.Errorf("parseRecord: no record in %q", line)
	}

	episode, err := strconv.Atoi(match[2])
	if err != nil {
		return Record{}, fmt.Errorf("parseRecord: %v", err)
	}

	var values [5]float64
	for i := range values {
		if values[i], err = strconv.ParseFloat(match[i+3], 64); err != nil {
			return Record{}, fmt.Errorf("parseRecord: %v", err)
		}
	}

	return Record{
		Phase:         match[1],
		Episode:       episode,
		SuccessRate:   values[0],
		CollisionRate: values[1],
		NavTime:       values[2],
		TotalReward:   values[3],
		Epsilon:       values[4],
	}, nil
}
