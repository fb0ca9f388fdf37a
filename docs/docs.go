// Package docs 注册 Swagger 文档，由 /swagger/*any 路由提供
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/environment/generations": {
            "post": {
                "tags": ["环境音"],
                "summary": "批量提交环境音生成",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/environment/tasks": {
            "get": {
                "tags": ["环境音"],
                "summary": "列出环境音生成任务",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/environment/tasks/{task_id}": {
            "get": {
                "tags": ["环境音"],
                "summary": "查询环境音生成任务",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/files/download-url": {
            "get": {
                "tags": ["文件"],
                "summary": "获取下载URL",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/projects": {
            "get": {
                "tags": ["项目"],
                "summary": "列出用户的项目",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["项目"],
                "summary": "创建合成项目",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/projects/{project_id}": {
            "delete": {
                "tags": ["项目"],
                "summary": "删除项目",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            },
            "get": {
                "tags": ["项目"],
                "summary": "获取项目详情（含合成状态与最终音频）",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/projects/{project_id}/environment-sounds": {
            "get": {
                "tags": ["项目"],
                "summary": "列出项目环境音素材",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/projects/{project_id}/progress/ws": {
            "get": {
                "tags": ["项目"],
                "summary": "合成进度 WebSocket",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/projects/{project_id}/synthesis": {
            "post": {
                "tags": ["项目"],
                "summary": "启动项目合成（后台执行，进度通过 WebSocket 推送）",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/scenes/analyze": {
            "post": {
                "tags": ["时间轴"],
                "summary": "文本场景分析",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/timelines": {
            "post": {
                "tags": ["时间轴"],
                "summary": "生成环境音时间轴",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/files/{key}": {
            "get": {
                "tags": ["文件"],
                "summary": "下载存储中的文件",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo 文档元信息
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ambience API",
	Description:      "对白时间轴、环境音生成与混音合成接口",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
