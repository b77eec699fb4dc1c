package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/redis/go-redis/v9"
)

const defaultSamplesPerCamera = 200

// SampleStore keeps a rolling window of encoded frames with the command they
// were sent under, one sorted set per camera scored by capture time.
type SampleStore struct {
	redis     *redis.Client
	sampleTTL time.Duration
	maxPerKey int64
	logger    *slog.Logger
}

func NewSampleStore(redisClient *redis.Client, sampleTTL time.Duration, logger *slog.Logger) *SampleStore {
	if sampleTTL == 0 {
		sampleTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SampleStore{
		redis:     redisClient,
		sampleTTL: sampleTTL,
		maxPerKey: defaultSamplesPerCamera,
		logger:    logger.With("component", "sample-store"),
	}
}

func sampleKey(id camera.ID) string {
	return fmt.Sprintf("docking:samples:%s", id)
}

func (s *SampleStore) StoreSample(ctx context.Context, sample *Sample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	key := sampleKey(sample.CameraID)
	pipe := s.redis.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(sample.Timestamp), Member: data})
	pipe.ZRemRangeByRank(ctx, key, 0, -(s.maxPerKey + 1))
	pipe.Expire(ctx, key, s.sampleTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// ObserveSample records a sample without blocking the caller.
func (s *SampleStore) ObserveSample(img EncodedImage, command string) {
	sample := &Sample{
		CameraID:    img.CameraID,
		Command:     command,
		Timestamp:   time.Now().UnixMilli(),
		ImageBase64: img.Base64,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		if err := s.StoreSample(ctx, sample); err != nil {
			s.logger.Error("store sample failed", "camera_id", sample.CameraID, "error", err)
		}
	}()
}

func (s *SampleStore) GetLatestSample(ctx context.Context, id camera.ID) (*Sample, error) {
	results, err := s.redis.ZRevRangeWithScores(ctx, sampleKey(id), 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	return decodeSample(results[0])
}

func (s *SampleStore) GetSamples(ctx context.Context, id camera.ID, startTime, endTime int64, limit int) ([]*Sample, error) {
	opt := &redis.ZRangeBy{
		Min:   strconv.FormatInt(startTime, 10),
		Max:   strconv.FormatInt(endTime, 10),
		Count: int64(limit),
	}

	results, err := s.redis.ZRangeByScoreWithScores(ctx, sampleKey(id), opt).Result()
	if err != nil {
		return nil, err
	}

	samples := make([]*Sample, 0, len(results))
	for _, r := range results {
		sample, err := decodeSample(r)
		if err != nil {
			continue
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

func (s *SampleStore) DeleteSamples(ctx context.Context, id camera.ID) error {
	return s.redis.Del(ctx, sampleKey(id)).Err()
}

func decodeSample(z redis.Z) (*Sample, error) {
	data, ok := z.Member.(string)
	if !ok {
		return nil, fmt.Errorf("invalid sample data type")
	}

	var sample Sample
	if err := json.Unmarshal([]byte(data), &sample); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return &sample, nil
}
