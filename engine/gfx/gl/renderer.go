// Package glbackend implements core.Renderer on OpenGL 3.3 core.
package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/hubastard/thicket/engine/core"
)

type RendererGL struct {
	win     core.Window
	program uint32
	uVPLoc  int32
	vp      [16]float32

	fbW, fbH int
	boundRT  *renderTextureGL
}

func NewRendererGL(win core.Window, _ core.Config) (*RendererGL, error) {
	r := &RendererGL{win: win}
	if err := r.Init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RendererGL) Init() error {
	var err error
	r.program, err = makeProgram(vertexSource, fragmentSource)
	if err != nil {
		return err
	}
	r.uVPLoc = gl.GetUniformLocation(r.program, gl.Str("uVP\x00"))

	// Identity until a camera takes over.
	r.vp = [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}

	// Painter's order, no depth buffer; standard alpha blending.
	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	r.fbW, r.fbH = r.win.FramebufferSize()
	return nil
}

func (r *RendererGL) Shutdown() {
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

func (r *RendererGL) Resize(w, h int) {
	r.fbW, r.fbH = w, h
	if r.boundRT == nil {
		gl.Viewport(0, 0, int32(w), int32(h))
	}
}

func (r *RendererGL) Clear(rf, gf, bf, af float32) {
	gl.ClearColor(rf, gf, bf, af)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (r *RendererGL) SetViewProjection(vp [16]float32) { r.vp = vp }

// --- textures ---

type textureGL struct {
	id     uint32
	w, h   int
	pixels []byte // retained CPU copy, nil unless desc.Retain
}

func (t *textureGL) Width() int     { return t.w }
func (t *textureGL) Height() int    { return t.h }
func (t *textureGL) Pixels() []byte { return t.pixels }

func (r *RendererGL) CreateTexture(desc core.TextureDesc) (core.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("gl: texture size %dx%d", desc.Width, desc.Height)
	}
	if desc.Format != core.TextureRGBA8 {
		return nil, fmt.Errorf("gl: unsupported texture format %d", desc.Format)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filterEnum(desc.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filterEnum(desc.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapEnum(desc.WrapU))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapEnum(desc.WrapV))

	if desc.Pixels != nil {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(desc.Width), int32(desc.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(desc.Pixels))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(desc.Width), int32(desc.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	t := &textureGL{id: id, w: desc.Width, h: desc.Height}
	if desc.Retain && desc.Pixels != nil {
		t.pixels = make([]byte, len(desc.Pixels))
		copy(t.pixels, desc.Pixels)
	}
	return t, nil
}

func (r *RendererGL) UpdateTexture(t core.Texture, x, y, w, h int, pixels []byte) error {
	tex, ok := t.(*textureGL)
	if !ok {
		return fmt.Errorf("gl: foreign texture %T", t)
	}
	if x < 0 || y < 0 || x+w > tex.w || y+h > tex.h {
		return fmt.Errorf("gl: texture update rect (%d,%d %dx%d) outside %dx%d", x, y, w, h, tex.w, tex.h)
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(x), int32(y), int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	// Keep the retained copy in sync.
	if tex.pixels != nil {
		for row := 0; row < h; row++ {
			to := ((y+row)*tex.w + x) * 4
			copy(tex.pixels[to:to+w*4], pixels[row*w*4:(row+1)*w*4])
		}
	}
	return nil
}

func (r *RendererGL) DeleteTexture(t core.Texture) {
	if tex, ok := t.(*textureGL); ok && tex.id != 0 {
		gl.DeleteTextures(1, &tex.id)
		tex.id = 0
	}
}

// --- vertex buffers ---

type vertexBufferGL struct {
	vao, vbo uint32
	capacity int
}

func (b *vertexBufferGL) Capacity() int { return b.capacity }

func (r *RendererGL) CreateVertexBuffer(capacity int) (core.VertexBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gl: vertex buffer capacity %d", capacity)
	}
	b := &vertexBufferGL{capacity: capacity}
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, capacity*core.VertexStride, nil, gl.DYNAMIC_DRAW)

	// layout: vec2 pos, vec2 uv, vec4 color
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, core.VertexStride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, core.VertexStride, 2*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, core.VertexStride, 4*4)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return b, nil
}

func (r *RendererGL) GrowVertexBuffer(buf core.VertexBuffer, capacity int) error {
	b, ok := buf.(*vertexBufferGL)
	if !ok {
		return fmt.Errorf("gl: foreign vertex buffer %T", buf)
	}
	if capacity <= b.capacity {
		return nil
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, capacity*core.VertexStride, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	b.capacity = capacity
	return nil
}

func (r *RendererGL) DeleteVertexBuffer(buf core.VertexBuffer) {
	if b, ok := buf.(*vertexBufferGL); ok {
		if b.vbo != 0 {
			gl.DeleteBuffers(1, &b.vbo)
			b.vbo = 0
		}
		if b.vao != 0 {
			gl.DeleteVertexArrays(1, &b.vao)
			b.vao = 0
		}
	}
}

func (r *RendererGL) DrawVertices(buf core.VertexBuffer, verts []core.Vertex, count int, t core.Texture) error {
	b, ok := buf.(*vertexBufferGL)
	if !ok {
		return fmt.Errorf("gl: foreign vertex buffer %T", buf)
	}
	tex, ok := t.(*textureGL)
	if !ok {
		return fmt.Errorf("gl: foreign texture %T", t)
	}
	if count <= 0 {
		return nil
	}
	if count > b.capacity || len(verts) > b.capacity {
		return fmt.Errorf("gl: draw of %d/%d vertices exceeds buffer capacity %d", count, len(verts), b.capacity)
	}

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.uVPLoc, 1, false, &r.vp[0])

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex.id)

	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(verts)*core.VertexStride, gl.Ptr(verts))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(count))
	gl.BindVertexArray(0)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
	return nil
}

// --- render textures ---

type renderTextureGL struct {
	fbo  uint32
	tex  *textureGL
	w, h int
}

func (rt *renderTextureGL) Texture() core.Texture { return rt.tex }
func (rt *renderTextureGL) Width() int            { return rt.w }
func (rt *renderTextureGL) Height() int           { return rt.h }

func (r *RendererGL) CreateRenderTexture(w, h int) (core.RenderTexture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("gl: render texture size %dx%d", w, h)
	}
	tex, err := r.CreateTexture(core.TextureDesc{
		Width: w, Height: h,
		Format:    core.TextureRGBA8,
		MinFilter: "nearest", MagFilter: "nearest",
		WrapU: "clamp", WrapV: "clamp",
	})
	if err != nil {
		return nil, err
	}
	t := tex.(*textureGL)

	rt := &renderTextureGL{tex: t, w: w, h: h}
	gl.GenFramebuffers(1, &rt.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.id, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &rt.fbo)
		r.DeleteTexture(t)
		return nil, fmt.Errorf("gl: framebuffer incomplete: 0x%x", status)
	}
	return rt, nil
}

func (r *RendererGL) DeleteRenderTexture(rrt core.RenderTexture) {
	rt, ok := rrt.(*renderTextureGL)
	if !ok || rt == nil {
		return
	}
	if rt.fbo != 0 {
		gl.DeleteFramebuffers(1, &rt.fbo)
		rt.fbo = 0
	}
	r.DeleteTexture(rt.tex)
}

func (r *RendererGL) SetRenderTexture(rrt core.RenderTexture) error {
	if rrt == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(r.fbW), int32(r.fbH))
		r.boundRT = nil
		return nil
	}
	rt, ok := rrt.(*renderTextureGL)
	if !ok {
		return fmt.Errorf("gl: foreign render texture %T", rrt)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.Viewport(0, 0, int32(rt.w), int32(rt.h))
	r.boundRT = rt
	return nil
}

func filterEnum(name string) int32 {
	if name == "linear" {
		return gl.LINEAR
	}
	return gl.NEAREST
}

func wrapEnum(name string) int32 {
	if name == "repeat" {
		return gl.REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

// --- shader program ---

const vertexSource = `
#version 330 core
layout(location=0) in vec2 aPos;
layout(location=1) in vec2 aUV;
layout(location=2) in vec4 aColor;
uniform mat4 uVP;
out vec2 vUV;
out vec4 vColor;
void main() {
    vUV = aUV;
    vColor = aColor;
    gl_Position = uVP * vec4(aPos, 0.0, 1.0);
}
` + "\x00"

const fragmentSource = `
#version 330 core
in vec2 vUV;
in vec4 vColor;
uniform sampler2D uTex;
out vec4 FragColor;
void main() {
    FragColor = texture(uTex, vUV) * vColor;
}
` + "\x00"

func makeShader(src string, shaderType uint32) (uint32, error) {
	sh := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	defer free()
	gl.ShaderSource(sh, 1, csrc, nil)
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen))
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(log))
		return 0, fmt.Errorf("shader compile error: %s", log)
	}
	return sh, nil
}

func makeProgram(vsSrc, fsSrc string) (uint32, error) {
	vs, err := makeShader(vsSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := makeShader(fsSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		return 0, fmt.Errorf("program link error: %s", log)
	}
	return prog, nil
}
