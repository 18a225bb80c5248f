// Package todo 提供待办事项的领域类型与存储实现：PostgreSQL 与进程内存两种仓库。
package todo
