package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/host"
	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
)

// simHost stands in for the rendering host. Frames are flat colours derived
// from the vehicle pose, which is enough to drive the loop end to end.
type simHost struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	pose   motion.Pose
	width  int
	height int
}

func main() {
	hostURL := flag.String("url", "ws://localhost:8080/v1/host/connect", "core host endpoint")
	cameras := flag.String("cameras", "", "comma separated camera ids to bind (default all)")
	width := flag.Int("width", 256, "frame width")
	height := flag.Int("height", 256, "frame height")
	dock := flag.String("dock", "", "docking port position x,y,z")
	flag.Parse()

	token := os.Getenv("TOKEN")
	if token == "" {
		log.Fatal("TOKEN env required")
	}

	bound, err := parseCameras(*cameras)
	if err != nil {
		log.Fatal(err)
	}

	u, err := url.Parse(*hostURL)
	if err != nil {
		log.Fatal("url:", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	fmt.Printf("[SIM] Connecting to %s\n", u.String())

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("[SIM] Dial failed: %v, status=%d, body=%s\n", err, resp.StatusCode, string(body))
		}
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	sim := &simHost{conn: conn, width: *width, height: *height}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("[SIM] Shutting down...")
		_ = sim.send(&host.Message{Type: host.MessageTypeDespawn})
		conn.Close()
		os.Exit(0)
	}()

	if err := sim.send(&host.Message{Type: host.MessageTypeHello, Cameras: bound}); err != nil {
		log.Fatal("hello:", err)
	}
	if *dock != "" {
		pos, err := parseVec(*dock)
		if err != nil {
			log.Fatal(err)
		}
		if err := sim.send(&host.Message{Type: host.MessageTypeDock, Position: &pos}); err != nil {
			log.Fatal("dock:", err)
		}
	}
	sim.sendPose()

	fmt.Printf("[SIM] Spawned with %d cameras\n", len(bound))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			fmt.Printf("[SIM] Read error: %v\n", err)
			return
		}

		var msg host.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Printf("[SIM] Unmarshal error: %v\n", err)
			continue
		}
		sim.handle(&msg)
	}
}

func (s *simHost) handle(msg *host.Message) {
	switch msg.Type {
	case host.MessageTypeRender:
		s.render(msg)
	case host.MessageTypeTranslate:
		if msg.Delta == nil {
			return
		}
		s.mu.Lock()
		s.pose.Position = s.pose.Position.Add(msg.Delta.Vector())
		s.mu.Unlock()
		s.sendPose()
	case host.MessageTypeSetRotation:
		if msg.Rotation == nil {
			return
		}
		s.mu.Lock()
		s.pose.Rotation = msg.Rotation.Normalize()
		s.mu.Unlock()
		s.sendPose()
	default:
		fmt.Printf("[SIM] Ignoring message type: %s\n", msg.Type)
	}
}

func (s *simHost) render(msg *host.Message) {
	s.mu.Lock()
	pose := s.pose
	s.mu.Unlock()

	shade := func(v float64) byte {
		return byte(128 + 127*math.Tanh(v/500))
	}
	var r, g, b byte
	switch msg.CameraID {
	case camera.Forward, camera.Backward:
		r, g, b = shade(pose.Position.X), shade(pose.Rotation.Yaw), 64
	case camera.Left, camera.Right:
		r, g, b = 64, shade(pose.Position.Y), shade(pose.Rotation.Yaw)
	default:
		r, g, b = shade(pose.Position.Z), 64, shade(pose.Rotation.Pitch)
	}

	pixels := make([]byte, s.width*s.height*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = r, g, b, 255
	}

	err := s.send(&host.Message{
		Type:         host.MessageTypeFrame,
		RequestID:    msg.RequestID,
		CameraID:     msg.CameraID,
		Width:        s.width,
		Height:       s.height,
		PixelsBase64: base64.StdEncoding.EncodeToString(pixels),
	})
	if err != nil {
		fmt.Printf("[SIM] Frame send error: %v\n", err)
	}
}

func (s *simHost) sendPose() {
	s.mu.Lock()
	pos := host.VecOf(s.pose.Position)
	rot := s.pose.Rotation
	s.mu.Unlock()

	if err := s.send(&host.Message{Type: host.MessageTypePose, Position: &pos, Rotation: &rot}); err != nil {
		fmt.Printf("[SIM] Pose send error: %v\n", err)
	}
}

func (s *simHost) send(msg *host.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func parseCameras(list string) ([]camera.ID, error) {
	if list == "" {
		return camera.AllIDs, nil
	}
	var ids []camera.ID
	for _, part := range strings.Split(list, ",") {
		id, err := camera.ParseID(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseVec(s string) (host.Vec3, error) {
	var v r3.Vector
	if _, err := fmt.Sscanf(s, "%g,%g,%g", &v.X, &v.Y, &v.Z); err != nil {
		return host.Vec3{}, fmt.Errorf("dock position %q: %w", s, err)
	}
	return host.VecOf(v), nil
}
