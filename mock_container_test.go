package main

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"
)

type MockContainer struct {
	name           string
	public         bool
	makePublicErr  error
	makePublicCall int
	objects        map[string]mockObject
	// saveErrs injects an error for SaveToFile of the named object.
	saveErrs       map[string]error
	UploadRequests []string
	SaveRequests   []string
	StatRequests   []string
}

type mockObject struct {
	data        []byte
	modTime     time.Time
	contentType string
	// reportedSize overrides len(data) in listings when non-negative.
	reportedSize int64
}

func NewMockContainer(name string) *MockContainer {
	return &MockContainer{
		name:     name,
		objects:  make(map[string]mockObject),
		saveErrs: make(map[string]error),
	}
}

func (m *MockContainer) Put(name string, data []byte, modTime time.Time) {
	m.objects[name] = mockObject{data: data, modTime: modTime, reportedSize: -1}
}

func (m *MockContainer) PutWithReportedSize(name string, data []byte, reportedSize int64) {
	m.objects[name] = mockObject{data: data, modTime: time.Now(), reportedSize: reportedSize}
}

func (m *MockContainer) Data(name string) ([]byte, bool) {
	obj, ok := m.objects[name]
	return obj.data, ok
}

func (m *MockContainer) Names() []string {
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *MockContainer) remote(name string, obj mockObject) RemoteObject {
	size := int64(len(obj.data))
	if obj.reportedSize >= 0 {
		size = obj.reportedSize
	}
	return RemoteObject{Name: name, Size: size, ModTime: obj.modTime}
}

func (m *MockContainer) Name() string { return m.name }

func (m *MockContainer) IsPublic(context.Context) (bool, error) { return m.public, nil }

func (m *MockContainer) MakePublic(context.Context) error {
	m.makePublicCall++
	if m.makePublicErr != nil {
		return m.makePublicErr
	}
	m.public = true
	return nil
}

func (m *MockContainer) PublicURI() string { return "https://cdn.example.com/" + m.name }

func (m *MockContainer) Objects(ctx context.Context, prefix string, fn func(RemoteObject) error) error {
	for _, name := range m.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := fn(m.remote(name, m.objects[name])); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockContainer) Stat(ctx context.Context, name string) (RemoteObject, error) {
	m.StatRequests = append(m.StatRequests, name)
	obj, ok := m.objects[name]
	if !ok {
		return RemoteObject{}, ErrObjectNotFound
	}
	return m.remote(name, obj), nil
}

func (m *MockContainer) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) error {
	data, readErr := io.ReadAll(body)
	if readErr != nil {
		return readErr
	}
	m.UploadRequests = append(m.UploadRequests, name)
	m.objects[name] = mockObject{data: data, modTime: time.Now().Add(time.Second), contentType: contentType, reportedSize: -1}
	return nil
}

func (m *MockContainer) SaveToFile(ctx context.Context, obj RemoteObject, path string, observer TransferObserver) error {
	m.SaveRequests = append(m.SaveRequests, obj.Name)
	if err, ok := m.saveErrs[obj.Name]; ok {
		return err
	}
	return saveStream(path, obj, bytes.NewReader(m.objects[obj.Name].data), observer)
}
