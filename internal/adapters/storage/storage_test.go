package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

var fixed = time.UnixMilli(1_700_000_000_000)

func TestKey(t *testing.T) {
	Convey("Given upload file names", t, func() {
		Convey("Then keys carry the millisecond stamp and a clean name", func() {
			k, err := Key(fixed, "My Jump.MP4")
			So(err, ShouldBeNil)
			So(k, ShouldEqual, "1700000000000_my-jump.mp4")
		})

		Convey("Then directory parts are dropped", func() {
			k, err := Key(fixed, `C:\clips\../../etc/passwd`)
			So(err, ShouldBeNil)
			So(k, ShouldEqual, "1700000000000_passwd")
		})

		Convey("Then names without a usable stem fall back to video", func() {
			k, err := Key(fixed, "???.mov")
			So(err, ShouldBeNil)
			So(k, ShouldEqual, "1700000000000_video.mov")
		})

		Convey("Then blank names are rejected", func() {
			_, err := Key(fixed, "   ")
			So(errors.Is(err, ErrEmptyName), ShouldBeTrue)
		})
	})
}

func TestLocalStore(t *testing.T) {
	Convey("Given a local store in a temp dir", t, func() {
		ctx := context.Background()
		store, err := NewLocalStore(t.TempDir()+"/uploads", WithClock(func() time.Time { return fixed }))
		So(err, ShouldBeNil)

		Convey("When a video is saved", func() {
			v, err := store.Save(ctx, "sprint.mp4", strings.NewReader("frames"), -1, "video/mp4")
			So(err, ShouldBeNil)

			Convey("Then the file exists with its metadata", func() {
				So(v.Key, ShouldEqual, "1700000000000_sprint.mp4")
				So(v.Name, ShouldEqual, "sprint.mp4")
				So(v.URL, ShouldEqual, "/uploads/1700000000000_sprint.mp4")
				So(v.Size, ShouldEqual, 6)
				data, err := os.ReadFile(v.Path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "frames")
			})

			Convey("Then it can be deleted once", func() {
				So(store.Delete(ctx, v.Key), ShouldBeNil)
				err := store.Delete(ctx, v.Key)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := store.Save(cctx, "late.mp4", bytes.NewReader(make([]byte, 1024)), 1024, "video/mp4")

			Convey("Then nothing is kept", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				_, statErr := os.Stat(store.dir + "/1700000000000_late.mp4")
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When a custom prefix is configured", func() {
			s2, err := NewLocalStore(t.TempDir(), WithClock(func() time.Time { return fixed }), WithURLPrefix("https://cdn.example/v/"))
			So(err, ShouldBeNil)
			v, err := s2.Save(ctx, "a.mp4", strings.NewReader("x"), 1, "video/mp4")
			So(err, ShouldBeNil)
			So(v.URL, ShouldEqual, "https://cdn.example/v/1700000000000_a.mp4")
		})
	})
}

// Set APAS_TEST_MINIO_ENDPOINT (with minioadmin credentials) to run against a live server.
func TestMinioStore(t *testing.T) {
	endpoint := os.Getenv("APAS_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("APAS_TEST_MINIO_ENDPOINT not set")
	}
	Convey("Given a MinIO bucket", t, func() {
		ctx := context.Background()
		store, err := NewMinioStore(ctx, MinioConfig{
			Endpoint: endpoint, AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "apas-test",
		})
		So(err, ShouldBeNil)

		Convey("When a video is saved", func() {
			v, err := store.Save(ctx, "dive.mp4", strings.NewReader("frames"), 6, "video/mp4")
			So(err, ShouldBeNil)
			So(v.Path, ShouldBeEmpty)
			So(v.URL, ShouldStartWith, "/apas-test/")
			So(store.Delete(ctx, v.Key), ShouldBeNil)
		})
	})
}
